// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"microfinance-scoring/internal/common/validation"
	"microfinance-scoring/pkg/registry"
)

func main() {
	if len(os.Args) < 2 {
		help(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		path := fs.String("path", "configs/activity-registry.json", "Destination file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		reg := registry.Default()
		reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		if err := saveRegistry(reg, *path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d activities to %s\n", len(reg.Activities), *path)
		return nil

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := fs.String("path", "configs/activity-registry.json", "Registry file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := validateRegistry(reg); err != nil {
			return err
		}
		fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil

	case "check":
		fs := flag.NewFlagSet("check", flag.ContinueOnError)
		taskType := fs.String("task", "", "Task type whose input schema applies")
		payload := fs.String("payload", "", "JSON file with the job variables (- for stdin)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *taskType == "" || *payload == "" {
			return fmt.Errorf("task and payload are required for check")
		}
		return checkPayload(*taskType, *payload, out)

	case "help":
		help(out)
		return nil
	default:
		help(out)
		return fmt.Errorf("unknown command %q", command)
	}
}

// validateRegistry checks the catalogue is complete against the built-in one
// and that every input schema compiles.
func validateRegistry(reg *registry.ActivityRegistry) error {
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, activity := range reg.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}
		if activity.Timeout != "" {
			if _, err := time.ParseDuration(activity.Timeout); err != nil {
				return fmt.Errorf("activity %s has invalid timeout %q", activity.ID, activity.Timeout)
			}
		}
	}

	for _, want := range registry.Default().Activities {
		if _, ok := reg.Find(want.TaskType); !ok {
			return fmt.Errorf("registry is missing task type %s", want.TaskType)
		}
	}

	if _, err := validation.NewValidator(reg); err != nil {
		return err
	}
	return nil
}

func checkPayload(taskType, path string, out io.Writer) error {
	reg := registry.Default()
	if _, ok := reg.Find(taskType); !ok {
		return fmt.Errorf("unknown task type %s", taskType)
	}
	v, err := validation.NewValidator(reg)
	if err != nil {
		return err
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	res := v.Validate(taskType, string(data))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("payload does not match %s input schema", taskType)
	}
	return nil
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help(w io.Writer) {
	fmt.Fprint(w, `
Usage: registry-updater <command> [flags]

Commands:
  export    Write the built-in scoring activity catalogue to a file
  validate  Validate a registry file against the built-in task types
  check     Validate a job payload against a task's input schema
  help      Show this help message

Examples:
  registry-updater export -path configs/activity-registry.json
  registry-updater validate -path configs/activity-registry.json
  registry-updater check -task apply-transaction -payload event.json
`)
}
