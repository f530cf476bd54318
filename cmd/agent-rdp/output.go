package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rcarmo/agent-rdp/internal/ipc"
)

// output formats an *ipc.Response for a terminal, mirroring the
// reference CLI's two modes: human-readable by default, raw JSON
// under -json.
type output struct {
	json bool
}

func newOutput(jsonMode bool) *output {
	return &output{json: jsonMode}
}

func (o *output) print(resp *ipc.Response) {
	if o.json {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(resp)
		return
	}

	if !resp.Success {
		if resp.Error != nil {
			fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", resp.Error.Code, resp.Error.Message)
		} else {
			fmt.Fprintln(os.Stderr, "Error: unknown failure")
		}
		return
	}

	if len(resp.Data) == 0 {
		fmt.Println("OK")
		return
	}
	printData(resp.Data)
}

// printData renders common response shapes the way output.rs does,
// falling back to a sorted key: value dump for anything it doesn't
// recognise by shape.
func printData(data map[string]any) {
	switch {
	case has(data, "host", "width", "height") && len(data) == 3:
		fmt.Printf("Connected to %v (%vx%v)\n", data["host"], data["width"], data["height"])
	case has(data, "width", "height", "format", "base64"):
		fmt.Printf("Screenshot: %vx%v (%v)\n", data["width"], data["height"], data["format"])
		if b, ok := data["base64"].(string); ok {
			fmt.Printf("Base64 data: %d bytes\n", len(b))
		}
	case has(data, "text") && len(data) == 1:
		fmt.Println(data["text"])
	case has(data, "name", "state", "pid", "uptime_secs"):
		fmt.Printf("Session: %v\n", data["name"])
		fmt.Printf("State: %v\n", data["state"])
		if host, ok := data["host"]; ok {
			fmt.Printf("Host: %v\n", host)
		}
		if w, ok := data["width"]; ok {
			fmt.Printf("Resolution: %vx%v\n", w, data["height"])
		}
		fmt.Printf("PID: %v\n", data["pid"])
		fmt.Printf("Uptime: %vs\n", data["uptime_secs"])
	case has(data, "drives"):
		drives, _ := data["drives"].([]any)
		if len(drives) == 0 {
			fmt.Println("No drives mapped")
			break
		}
		for _, d := range drives {
			dm, _ := d.(map[string]any)
			fmt.Printf("%v: %v\n", dm["name"], dm["path"])
		}
	case has(data, "pong"):
		fmt.Println("Pong")
	default:
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s: %v\n", k, data[k])
		}
	}
}

func has(data map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			return false
		}
	}
	return true
}
