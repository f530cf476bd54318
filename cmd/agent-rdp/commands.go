package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rcarmo/agent-rdp/internal/daemonclient"
	"github.com/rcarmo/agent-rdp/internal/ipc"
)

func runConnect(g globalFlags, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	host := fs.String("host", "", "server hostname or IP")
	port := fs.Int("port", 3389, "server port")
	username := fs.String("username", os.Getenv("AGENT_RDP_USERNAME"), "username")
	password := fs.String("password", os.Getenv("AGENT_RDP_PASSWORD"), "password")
	passwordStdin := fs.Bool("password-stdin", false, "read password from stdin")
	domain := fs.String("domain", "", "domain")
	width := fs.Int("width", 1280, "desktop width")
	height := fs.Int("height", 800, "desktop height")
	automation := fs.Bool("enable-win-automation", false, "enable the Windows UI Automation channel")
	var drives driveFlag
	fs.Var(&drives, "drive", "map a local directory as a drive (PATH:NAME), repeatable")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *host == "" {
		return fmt.Errorf("connect: -host is required")
	}

	pw := *password
	if *passwordStdin {
		line, err := readLine(os.Stdin)
		if err != nil {
			return fmt.Errorf("connect: read password from stdin: %w", err)
		}
		pw = line
	}

	return dispatch(g, &ipc.Request{
		Type:       "connect",
		Host:       *host,
		Port:       *port,
		Username:   *username,
		Password:   pw,
		Domain:     *domain,
		Width:      uint16(*width),
		Height:     uint16(*height),
		Drives:     drives.mappings,
		Automation: *automation,
	})
}

// driveFlag accumulates repeated -drive PATH:NAME flags.
type driveFlag struct {
	mappings []ipc.DriveMapping
}

func (d *driveFlag) String() string {
	parts := make([]string, 0, len(d.mappings))
	for _, m := range d.mappings {
		parts = append(parts, m.Path+":"+m.Name)
	}
	return strings.Join(parts, ",")
}

func (d *driveFlag) Set(value string) error {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid -drive %q, expected PATH:NAME", value)
	}
	d.mappings = append(d.mappings, ipc.DriveMapping{Path: parts[0], Name: parts[1]})
	return nil
}

func runDisconnect(g globalFlags, args []string) error {
	return dispatch(g, &ipc.Request{Type: "disconnect"})
}

func runScreenshot(g globalFlags, args []string) error {
	fs := flag.NewFlagSet("screenshot", flag.ContinueOnError)
	outPath := fs.String("output", "./screenshot.png", "save to file path")
	format := fs.String("format", "png", "image format (png, jpeg)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr := daemonclient.NewManager(g.session, g.resolvedBaseDir())
	client, err := mgr.EnsureDaemon(60 * time.Second)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Send(&ipc.Request{Type: "screenshot", Format: *format}, g.timeout)
	if err != nil {
		return err
	}
	if !resp.Success {
		newOutput(g.json).print(resp)
		return fmt.Errorf("%s", resp.Error.Message)
	}

	if g.json {
		newOutput(true).print(resp)
		return nil
	}

	if err := saveScreenshot(*outPath, resp.Data); err != nil {
		return err
	}
	fmt.Printf("Screenshot: %vx%v (%v) saved to %s\n", resp.Data["width"], resp.Data["height"], resp.Data["format"], *outPath)
	return nil
}

func runMouse(g globalFlags, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("mouse: expected an action (move|click|right-click|double-click|drag)")
	}
	action, rest := args[0], args[1:]

	switch action {
	case "move", "click", "right-click", "double-click":
		if len(rest) != 2 {
			return fmt.Errorf("mouse %s: expected X Y", action)
		}
		x, y, err := parseCoordPair(rest[0], rest[1])
		if err != nil {
			return err
		}
		wireAction := map[string]string{
			"move": "move", "click": "click",
			"right-click": "right_click", "double-click": "double_click",
		}[action]
		return dispatch(g, &ipc.Request{Type: "mouse", Action: wireAction, X: x, Y: y})
	case "drag":
		if len(rest) != 4 {
			return fmt.Errorf("mouse drag: expected X1 Y1 X2 Y2")
		}
		x1, y1, x2, y2, err := parseFourCoords(rest)
		if err != nil {
			return err
		}
		return dispatch(g, &ipc.Request{Type: "mouse", Action: "drag", FromX: x1, FromY: y1, ToX: x2, ToY: y2})
	default:
		return fmt.Errorf("mouse: unrecognised action %q", action)
	}
}

func runKeyboard(g globalFlags, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("keyboard: expected an action (type|press) and one argument")
	}
	switch args[0] {
	case "type":
		return dispatch(g, &ipc.Request{Type: "keyboard", Action: "type", Text: args[1]})
	case "press":
		return dispatch(g, &ipc.Request{Type: "keyboard", Action: "press", Keys: args[1]})
	default:
		return fmt.Errorf("keyboard: unrecognised action %q", args[0])
	}
}

func runScroll(g globalFlags, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("scroll: expected a direction (up|down|left|right)")
	}
	direction := args[0]
	switch direction {
	case "up", "down", "left", "right":
	default:
		return fmt.Errorf("scroll: unrecognised direction %q", direction)
	}

	fs := flag.NewFlagSet("scroll "+direction, flag.ContinueOnError)
	at := fs.String("at", "", "position to scroll at, as X,Y")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	amount := 3
	if fs.NArg() == 1 {
		n, err := parseInt(fs.Arg(0))
		if err != nil {
			return err
		}
		amount = n
	}

	req := &ipc.Request{Type: "scroll", Direction: direction, Amount: amount}
	if *at != "" {
		x, y, err := parseAtFlag(*at)
		if err != nil {
			return err
		}
		req.X, req.Y = x, y
	}
	return dispatch(g, req)
}

func runClipboard(g globalFlags, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("clipboard: expected an action (get|set)")
	}
	switch args[0] {
	case "get":
		return dispatch(g, &ipc.Request{Type: "clipboard", Action: "get"})
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("clipboard set: expected TEXT")
		}
		return dispatch(g, &ipc.Request{Type: "clipboard", Action: "set", Text: args[1]})
	default:
		return fmt.Errorf("clipboard: unrecognised action %q", args[0])
	}
}

func runDrive(g globalFlags, args []string) error {
	if len(args) != 1 || args[0] != "list" {
		return fmt.Errorf("drive: expected \"list\"")
	}
	return dispatch(g, &ipc.Request{Type: "drive", Action: "list"})
}

func runSession(g globalFlags, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("session: expected an action (info|list)")
	}
	switch args[0] {
	case "info":
		return dispatch(g, &ipc.Request{Type: "session_info"})
	case "list":
		sessions := daemonclient.ListSessions(g.resolvedBaseDir())
		if g.json {
			newOutput(true).print(&ipc.Response{Success: true, Data: map[string]any{"sessions": sessions}})
			return nil
		}
		if len(sessions) == 0 {
			fmt.Println("No active sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Println(s)
		}
		return nil
	default:
		return fmt.Errorf("session: unrecognised action %q", args[0])
	}
}

func runPing(g globalFlags, args []string) error {
	return dispatch(g, &ipc.Request{Type: "ping"})
}

func runShutdown(g globalFlags, args []string) error {
	return dispatch(g, &ipc.Request{Type: "shutdown"})
}

// runView does not open a browser: no HTML viewer asset pipeline was
// carried over, so it pings the daemon and prints the ws:// URL a
// WebSocket-capable client can open against agent-rdpd's -viewer-addr.
func runView(g globalFlags, args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:9224", "host:port agent-rdpd's -viewer-addr is bound to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr := daemonclient.NewManager(g.session, g.resolvedBaseDir())
	if !mgr.IsDaemonAlive() {
		return fmt.Errorf("daemon for session %q is not running", g.session)
	}
	fmt.Printf("ws://%s/viewer\n", *addr)
	return nil
}

func runWait(g globalFlags, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("wait: expected a millisecond count")
	}
	ms, err := parseInt(args[0])
	if err != nil {
		return err
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return nil
}
