// Command agent-rdpd is the daemon process: it owns one RDP session,
// serves internal/ipc requests over a Unix-domain socket (TCP on
// Windows), and optionally exposes a WebSocket viewer over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rcarmo/agent-rdp/internal/config"
	"github.com/rcarmo/agent-rdp/internal/handler"
	"github.com/rcarmo/agent-rdp/internal/ipc"
	"github.com/rcarmo/agent-rdp/internal/logging"
)

var (
	appName    = "agent-rdpd"
	appVersion = "dev" // injected at build time via -ldflags
)

func main() {
	args, action := parseFlags()
	if action != "" {
		return
	}
	if err := run(args); err != nil {
		log.Fatalln(err)
	}
}

type parsedArgs struct {
	session    string
	baseDir    string
	logLevel   string
	viewerAddr string
	viewerFPS  int
}

//go:noinline
func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(args []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("agent-rdpd", flag.ContinueOnError)
	session := fs.String("session", "default", "session name; selects the persisted-state directory and IPC socket")
	baseDir := fs.String("base-dir", "", "override the persisted-state root directory")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	viewerAddr := fs.String("viewer-addr", "", "optional host:port to serve the WebSocket viewer on (disabled if empty)")
	viewerFPS := fs.Int("viewer-fps", 10, "WebSocket viewer frame rate")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	_ = fs.Parse(args)

	if *helpFlag {
		showHelp()
		return parsedArgs{}, "help"
	}
	if *versionFlag {
		showVersion()
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		session:    strings.TrimSpace(*session),
		baseDir:    strings.TrimSpace(*baseDir),
		logLevel:   strings.TrimSpace(*logLevel),
		viewerAddr: strings.TrimSpace(*viewerAddr),
		viewerFPS:  *viewerFPS,
	}, ""
}

func run(args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{LogLevel: args.logLevel})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.SetLevelFromString(cfg.Logging.Level)

	baseDir := args.baseDir
	if baseDir == "" {
		baseDir = defaultBaseDir()
	}

	dispatcher := ipc.NewDispatcher(args.session, nil)

	ln, err := ipc.Listen(baseDir, args.session)
	if err != nil {
		return fmt.Errorf("agent-rdpd: %w", err)
	}
	defer ipc.Cleanup(baseDir, args.session)

	logging.Info("agent-rdpd: session %q listening on %s", args.session, ln.Addr())

	var viewerServer *http.Server
	if args.viewerAddr != "" {
		viewerServer = newViewerServer(args.viewerAddr, dispatcher, args.viewerFPS, cfg)
		go func() {
			logging.Info("agent-rdpd: viewer listening on %s", args.viewerAddr)
			if err := viewerServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("agent-rdpd: viewer server: %v", err)
			}
		}()
	}

	go func() {
		<-dispatcher.Shutdown()
		_ = ln.Close()
	}()

	ipc.Serve(ln, dispatcher)

	if viewerServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = viewerServer.Shutdown(ctx)
	}

	logging.Info("agent-rdpd: session %q shut down", args.session)
	return nil
}

func defaultBaseDir() string {
	if v := os.Getenv("AGENT_RDP_BASE_DIR"); v != "" {
		return v
	}
	return fmt.Sprintf("%s/agent-rdp", os.TempDir())
}

// newViewerServer builds the HTTP server hosting the WebSocket viewer,
// reusing the gateway's security-middleware stack (CORS, security
// headers, rate limiting, request logging) against a handler that
// resolves the dispatcher's current session lazily per request, since
// a viewer connection may arrive before or after the CLI has issued a
// `connect` request.
func newViewerServer(addr string, d *ipc.Dispatcher, fps int, cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/viewer", func(w http.ResponseWriter, r *http.Request) {
		sess := d.Session()
		if sess == nil {
			http.Error(w, "session not connected", http.StatusServiceUnavailable)
			return
		}
		handler.Viewer(sess, fps)(w, r)
	})

	h := applySecurityMiddleware(mux, cfg)
	h = requestLoggingMiddleware(h)

	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func applySecurityMiddleware(next http.Handler, cfg *config.Config) http.Handler {
	if cfg == nil {
		return securityHeadersMiddleware(corsMiddleware(next, nil))
	}

	h := next
	if cfg.Security.EnableRateLimit {
		h = rateLimitMiddleware(h, cfg.Security.RateLimitPerMinute)
	}
	h = corsMiddleware(h, cfg.Security.AllowedOrigins)
	h = securityHeadersMiddleware(h)
	return h
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && handler.IsOriginAllowed(origin, allowedOrigins, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type rateLimiter struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	last     time.Time
}

func newRateLimiter(ratePerMinute int) *rateLimiter {
	capacity := float64(ratePerMinute)
	if capacity <= 0 {
		capacity = 1
	}
	return &rateLimiter{capacity: capacity, tokens: capacity, last: time.Now()}
}

func (rl *rateLimiter) allow(now time.Time, refillPerSecond float64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	elapsed := now.Sub(rl.last).Seconds()
	if elapsed > 0 {
		rl.tokens += elapsed * refillPerSecond
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.last = now
	}
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

func rateLimitMiddleware(next http.Handler, ratePerMinute int) http.Handler {
	refillPerSecond := float64(ratePerMinute) / 60.0
	var clients sync.Map

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ratePerMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		}

		value, _ := clients.LoadOrStore(key, newRateLimiter(ratePerMinute))
		limiter := value.(*rateLimiter)
		if !limiter.allow(time.Now(), refillPerSecond) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("%s %s %s %s", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: agent-rdpd [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -session NAME    Session name (default \"default\")")
	fmt.Println("  -base-dir DIR    Override the persisted-state root directory")
	fmt.Println("  -log-level LEVEL Set log level (debug, info, warn, error)")
	fmt.Println("  -viewer-addr ADDR Serve the WebSocket viewer on host:port")
	fmt.Println("  -viewer-fps N    WebSocket viewer frame rate (default 10)")
	fmt.Println("  -version         Show version information")
	fmt.Println("  -help            Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: AGENT_RDP_BASE_DIR, LOG_LEVEL, ALLOWED_ORIGINS, RATE_LIMIT_PER_MINUTE")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
}
