// Command agent-rdp is the CLI: one subcommand per internal/ipc
// request type, auto-spawning the paired agent-rdpd daemon for its
// session if one isn't already running.
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

var appVersion = "dev" // injected at build time via -ldflags

// globalFlags are accepted before the subcommand name, the same way
// cmd/agent-rdpd's flags are parsed: one FlagSet, parsed once, with
// fs.Args() handed to whichever subcommand runs next.
type globalFlags struct {
	session string
	json    bool
	timeout time.Duration
	baseDir string
}

func main() {
	flags, rest, action := parseGlobalFlags(os.Args[1:])
	if action != "" {
		return
	}
	if err := run(flags, rest); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, string) {
	fs := flag.NewFlagSet("agent-rdp", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaultSession := os.Getenv("AGENT_RDP_SESSION")
	if defaultSession == "" {
		defaultSession = "default"
	}

	session := fs.String("session", defaultSession, "session name")
	jsonOut := fs.Bool("json", false, "output raw JSON responses")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	baseDir := fs.String("base-dir", "", "override the persisted-state root directory")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return globalFlags{}, nil, "help"
	}

	if *helpFlag {
		showHelp()
		return globalFlags{}, nil, "help"
	}
	if *versionFlag {
		showVersion()
		return globalFlags{}, nil, "version"
	}

	return globalFlags{
		session: strings.TrimSpace(*session),
		json:    *jsonOut,
		timeout: *timeout,
		baseDir: strings.TrimSpace(*baseDir),
	}, fs.Args(), ""
}

func (g globalFlags) resolvedBaseDir() string {
	if g.baseDir != "" {
		return g.baseDir
	}
	if v := os.Getenv("AGENT_RDP_BASE_DIR"); v != "" {
		return v
	}
	return fmt.Sprintf("%s/agent-rdp", os.TempDir())
}

type command struct {
	name  string
	short string
	run   func(g globalFlags, args []string) error
}

func commands() []command {
	return []command{
		{"connect", "Connect to an RDP server", runConnect},
		{"disconnect", "Disconnect and close the session", runDisconnect},
		{"screenshot", "Take a screenshot", runScreenshot},
		{"mouse", "Mouse operations (move|click|right-click|double-click|drag)", runMouse},
		{"keyboard", "Keyboard operations (type|press)", runKeyboard},
		{"scroll", "Scroll operations (up|down|left|right)", runScroll},
		{"clipboard", "Clipboard operations (get|set)", runClipboard},
		{"drive", "Drive mapping operations (list)", runDrive},
		{"session", "Session management (info|list)", runSession},
		{"ping", "Check daemon liveness", runPing},
		{"shutdown", "Shut down the daemon for this session", runShutdown},
		{"view", "Print the WebSocket viewer URL for a running daemon", runView},
		{"wait", "Wait for the specified number of milliseconds", runWait},
	}
}

func run(g globalFlags, args []string) error {
	if len(args) == 0 {
		showHelp()
		return fmt.Errorf("")
	}

	name, rest := args[0], args[1:]
	for _, c := range commands() {
		if c.name == name {
			return c.run(g, rest)
		}
	}

	showHelp()
	return fmt.Errorf("unrecognised command %q", name)
}

func showHelp() {
	fmt.Println("agent-rdp")
	fmt.Println("USAGE: agent-rdp [global flags] COMMAND [args]")
	fmt.Println("GLOBAL FLAGS:")
	fmt.Println("  -session NAME   Session name (default \"default\")")
	fmt.Println("  -json           Output raw JSON responses")
	fmt.Println("  -timeout DUR    Request timeout (default 30s)")
	fmt.Println("  -base-dir DIR   Override the persisted-state root directory")
	fmt.Println("  -version        Show version information")
	fmt.Println("  -help           Show this help message")
	fmt.Println("COMMANDS:")
	for _, c := range commands() {
		fmt.Printf("  %-12s %s\n", c.name, c.short)
	}
	fmt.Println("ENVIRONMENT VARIABLES: AGENT_RDP_SESSION, AGENT_RDP_BASE_DIR, AGENT_RDP_USERNAME, AGENT_RDP_PASSWORD")
}

func showVersion() {
	fmt.Printf("agent-rdp %s\n", appVersion)
}

// dispatch ensures a daemon is running for the session, sends req,
// prints the response with the current output mode, and returns an
// error (causing a non-zero exit) when the daemon reported failure.
func dispatch(g globalFlags, req *ipc.Request) error {
	mgr := daemonclient.NewManager(g.session, g.resolvedBaseDir())
	client, err := mgr.EnsureDaemon(60 * time.Second)
	if err != nil {
		newOutput(g.json).print(ipc.NewErrorResponse(ipc.ErrDaemonNotRunning, err.Error()))
		return err
	}
	defer client.Close()

	resp, err := client.Send(req, g.timeout)
	if err != nil {
		newOutput(g.json).print(ipc.NewErrorResponse(ipc.ErrIPCError, err.Error()))
		return err
	}

	newOutput(g.json).print(resp)
	if !resp.Success {
		return fmt.Errorf("%s", resp.Error.Message)
	}
	return nil
}
