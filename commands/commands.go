package commands

import (
	"fmt"
	"strconv"
	"strings"

	"taskbook/storage"
)

// ParamType defines the type of a command parameter
type ParamType string

const (
	ParamTypeString ParamType = "string"
	ParamTypeInt    ParamType = "integer"
)

// Param defines a parameter for a command
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Handler     func(args []string) bool // returns true to quit
	Params      []Param                  // parameter definitions for usage text
	Hidden      bool                     // if true, exclude from /help
}

var (
	registry = make(map[string]*Command)
	store    storage.Store
)

// Register adds a command to the registry
func Register(cmd *Command) {
	registry[strings.ToLower(cmd.Name)] = cmd
}

// SetStore sets the global store for commands to use
func SetStore(s storage.Store) {
	store = s
}

// GetStore returns the global store
func GetStore() storage.Store {
	return store
}

// Execute runs a command by name with arguments
func Execute(input string) (bool, error) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false, fmt.Errorf("empty command")
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, exists := registry[cmdName]
	if !exists {
		return false, fmt.Errorf("unknown command: %s", cmdName)
	}

	return cmd.Handler(args), nil
}

// List returns all registered commands
func List() []*Command {
	cmds := make([]*Command, 0, len(registry))
	for _, cmd := range registry {
		cmds = append(cmds, cmd)
	}
	return cmds
}

// GetByName returns a command by name (with or without leading /)
func GetByName(name string) *Command {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return registry[strings.ToLower(name)]
}

// Usage renders "<name> <param> [optional]" from the command's params
func (c *Command) Usage() string {
	parts := []string{c.Name}
	for _, p := range c.Params {
		if p.Required {
			parts = append(parts, "<"+p.Name+">")
		} else {
			parts = append(parts, "["+p.Name+"]")
		}
	}
	return strings.Join(parts, " ")
}

// parseID parses a task ID argument, printing an error when it is not an integer
func parseID(arg string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil {
		fmt.Printf("Error: invalid task ID %q\n", arg)
		return 0, false
	}
	return id, true
}

// printUsage prints the usage line for the named command
func printUsage(name string) {
	if cmd := GetByName(name); cmd != nil {
		fmt.Printf("Usage: %s\n", cmd.Usage())
	}
}
