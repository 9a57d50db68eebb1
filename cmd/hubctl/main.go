package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// hubctl inspects a namespace database from the command line, for
// operators poking at a hub without going through the API.
func main() {
	dataDir := flag.String("data", "data", "Data directory")
	namespace := flag.String("namespace", "default", "Namespace to inspect")
	action := flag.String("action", "", "Action: tasks, task, hunters, hunter, reports, discussion")
	id := flag.String("id", "", "Task, hunter or report ID")
	status := flag.String("status", "", "Task status filter")
	flag.Parse()

	if *action == "" {
		fmt.Fprintf(os.Stderr, "Usage: hubctl -data <dir> -namespace <ns> -action <action> [-id <id>] [-status <status>]\n")
		fmt.Fprintf(os.Stderr, "Actions: tasks, task, hunters, hunter, reports, discussion\n")
		os.Exit(1)
	}

	registry := store.NewRegistry(*dataDir)
	defer registry.CloseAll()

	s, err := registry.Get(*namespace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open namespace: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	err = s.View(ctx, func(tx *store.Tx) error {
		switch *action {
		case "tasks":
			tasks, err := tx.ListTasks(types.TaskFilter{Status: types.TaskStatus(*status)})
			if err != nil {
				return err
			}
			return out.Encode(tasks)

		case "task":
			task, err := tx.GetTask(*id)
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("task not found: %s", *id)
			}
			return out.Encode(task)

		case "hunters":
			hunters, err := tx.ListHunters()
			if err != nil {
				return err
			}
			return out.Encode(hunters)

		case "hunter":
			hunter, err := tx.GetHunter(*id)
			if err != nil {
				return err
			}
			if hunter == nil {
				return fmt.Errorf("hunter not found: %s", *id)
			}
			return out.Encode(hunter)

		case "reports":
			reports, err := tx.ListReports(types.ReportFilter{TaskID: *id})
			if err != nil {
				return err
			}
			return out.Encode(reports)

		case "discussion":
			msgs, err := tx.LatestMessages(100)
			if err != nil {
				return err
			}
			return out.Encode(msgs)

		default:
			return fmt.Errorf("unknown action: %s", *action)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
