package commands

import "fmt"

func quit(args []string) bool {
	fmt.Println("Goodbye!")
	return true
}

func init() {
	Register(&Command{
		Name:        "/quit",
		Description: "Exit taskbook",
		Hidden:      true,
		Handler:     quit,
	})

	// Alias
	Register(&Command{
		Name:        "/exit",
		Description: "Exit taskbook",
		Hidden:      true,
		Handler:     quit,
	})
}
