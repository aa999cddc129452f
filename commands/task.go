package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"taskbook/storage"
)

var (
	doneMark = color.New(color.FgGreen).Sprint("[✓]")
	openMark = "[ ]"
)

// formatTask renders a task as a single list line
func formatTask(t storage.Task) string {
	status := openMark
	if t.Completed {
		status = doneMark
	}

	line := fmt.Sprintf("%s #%d %s", status, t.ID, t.Title)
	if t.Description != "" {
		line += color.New(color.Faint).Sprint(" - " + t.Description)
	}
	return line
}

// updateTask applies patch and prints the outcome using verb
func updateTask(id int, patch storage.TaskPatch, verb string) {
	task, err := GetStore().Update(id, patch)
	if errors.Is(err, storage.ErrTaskNotFound) {
		fmt.Printf("Error: Task not found: #%d\n", id)
		return
	}
	if err != nil {
		fmt.Printf("Error updating task: %v\n", err)
		return
	}

	fmt.Printf("%s task #%d\n", verb, task.ID)
	fmt.Printf("  %s\n", formatTask(task))
}

func init() {
	Register(&Command{
		Name:        "/add",
		Description: "Add a task. Separate an optional description with |",
		Params: []Param{
			{Name: "title", Type: ParamTypeString, Description: "The title of the task", Required: true},
			{Name: "| description", Type: ParamTypeString, Description: "An optional description"},
		},
		Handler: func(args []string) bool {
			if len(args) == 0 {
				printUsage("/add")
				return false
			}

			title, description, _ := strings.Cut(strings.Join(args, " "), "|")
			title = strings.TrimSpace(title)
			description = strings.TrimSpace(description)

			task, err := GetStore().Create(title, description)
			if err != nil {
				fmt.Printf("Error creating task: %v\n", err)
				return false
			}

			fmt.Printf("Created task: %s (ID: %d)\n", task.Title, task.ID)
			return false
		},
	})

	Register(&Command{
		Name:        "/tasks",
		Description: "List all tasks",
		Handler: func(args []string) bool {
			tasks := GetStore().List()
			if len(tasks) == 0 {
				fmt.Println("No tasks yet. Add one with /add <title>")
				return false
			}

			done := 0
			for _, t := range tasks {
				if t.Completed {
					done++
				}
			}

			fmt.Printf("Tasks (%d/%d complete):\n", done, len(tasks))
			for _, t := range tasks {
				fmt.Printf("  %s\n", formatTask(t))
			}
			return false
		},
	})

	Register(&Command{
		Name:        "/task",
		Description: "Show a single task",
		Params: []Param{
			{Name: "id", Type: ParamTypeInt, Description: "The ID of the task", Required: true},
		},
		Handler: func(args []string) bool {
			if len(args) == 0 {
				printUsage("/task")
				return false
			}
			id, ok := parseID(args[0])
			if !ok {
				return false
			}

			task, found := GetStore().Get(id)
			if !found {
				fmt.Printf("No task with ID %d\n", id)
				return false
			}

			fmt.Println(formatTask(task))
			return false
		},
	})

	Register(&Command{
		Name:        "/title",
		Description: "Rename a task",
		Params: []Param{
			{Name: "id", Type: ParamTypeInt, Description: "The ID of the task", Required: true},
			{Name: "title", Type: ParamTypeString, Description: "The new title", Required: true},
		},
		Handler: func(args []string) bool {
			if len(args) < 2 {
				printUsage("/title")
				return false
			}
			id, ok := parseID(args[0])
			if !ok {
				return false
			}

			updateTask(id, storage.TaskPatch{Title: storage.String(strings.Join(args[1:], " "))}, "Renamed")
			return false
		},
	})

	Register(&Command{
		Name:        "/describe",
		Description: "Set a task's description; omit the text to clear it",
		Params: []Param{
			{Name: "id", Type: ParamTypeInt, Description: "The ID of the task", Required: true},
			{Name: "description", Type: ParamTypeString, Description: "The new description"},
		},
		Handler: func(args []string) bool {
			if len(args) == 0 {
				printUsage("/describe")
				return false
			}
			id, ok := parseID(args[0])
			if !ok {
				return false
			}

			updateTask(id, storage.TaskPatch{Description: storage.String(strings.Join(args[1:], " "))}, "Updated")
			return false
		},
	})

	Register(&Command{
		Name:        "/done",
		Description: "Mark a task as done",
		Params: []Param{
			{Name: "id", Type: ParamTypeInt, Description: "The ID of the task to mark as done", Required: true},
		},
		Handler: func(args []string) bool {
			if len(args) == 0 {
				printUsage("/done")
				return false
			}
			id, ok := parseID(args[0])
			if !ok {
				return false
			}

			updateTask(id, storage.TaskPatch{Completed: storage.Bool(true)}, "Completed")
			return false
		},
	})

	Register(&Command{
		Name:        "/undone",
		Description: "Mark a task as not done",
		Params: []Param{
			{Name: "id", Type: ParamTypeInt, Description: "The ID of the task to mark as not done", Required: true},
		},
		Handler: func(args []string) bool {
			if len(args) == 0 {
				printUsage("/undone")
				return false
			}
			id, ok := parseID(args[0])
			if !ok {
				return false
			}

			updateTask(id, storage.TaskPatch{Completed: storage.Bool(false)}, "Reopened")
			return false
		},
	})

	Register(&Command{
		Name:        "/delete",
		Description: "Delete a task",
		Params: []Param{
			{Name: "id", Type: ParamTypeInt, Description: "The ID of the task to delete", Required: true},
		},
		Handler: func(args []string) bool {
			if len(args) == 0 {
				printUsage("/delete")
				return false
			}
			id, ok := parseID(args[0])
			if !ok {
				return false
			}

			deleted, err := GetStore().Delete(id)
			if err != nil {
				fmt.Printf("Error deleting task: %v\n", err)
				return false
			}
			if !deleted {
				fmt.Printf("No task with ID %d\n", id)
				return false
			}

			fmt.Printf("Deleted task #%d\n", id)
			return false
		},
	})
}
