package commands

import (
	"fmt"
	"sort"
)

// printCommandHelp prints usage and parameter details for one command
func printCommandHelp(cmd *Command) {
	fmt.Printf("%s - %s\n", cmd.Usage(), cmd.Description)
	for _, p := range cmd.Params {
		required := "optional"
		if p.Required {
			required = "required"
		}
		fmt.Printf("  %-15s %s, %s - %s\n", p.Name, p.Type, required, p.Description)
	}
}

func init() {
	Register(&Command{
		Name:        "/help",
		Description: "Show available commands, or details for one command",
		Hidden:      true,
		Params: []Param{
			{Name: "command", Type: ParamTypeString, Description: "A command to describe"},
		},
		Handler: func(args []string) bool {
			if len(args) > 0 {
				cmd := GetByName(args[0])
				if cmd == nil {
					fmt.Printf("Unknown command: %s\n", args[0])
					return false
				}
				printCommandHelp(cmd)
				return false
			}

			fmt.Println("Available commands:")

			// Get all commands and sort by name
			cmds := List()
			sort.Slice(cmds, func(i, j int) bool {
				return cmds[i].Name < cmds[j].Name
			})

			for _, cmd := range cmds {
				if cmd.Hidden {
					continue
				}
				fmt.Printf("  %-28s - %s\n", cmd.Usage(), cmd.Description)
			}
			fmt.Println("  /quit                        - Exit taskbook")
			fmt.Println("Type /help <command> for parameter details.")

			return false
		},
	})
}
