// Package config loads settings for both binaries from the environment
// and optional .env files.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBackendURL = "http://127.0.0.1:5000"
	DefaultListenAddr = ":5000"
)

// LoadDotenv reads .env and then lets .env.local override it. Missing files are fine.
func LoadDotenv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	_ = godotenv.Overload(filepath.Join(dir, ".env.local"))
}

// Client keeps the operator CLI options.
type Client struct {
	BackendURL  string
	HTTPTimeout time.Duration // 0 = wait forever
	KeysFile    string
	Network     string

	CustomRPCURL   string
	CustomChainID  string // string so the resolver can reject junk
	CustomSymbol   string
	CustomExplorer string

	Recipient  string
	Percentage string // raw; the CLI validates it like --percent
	ReportDir  string
	LogLevel   string
}

// Server keeps the backend options.
type Server struct {
	ListenAddr     string
	RPCTimeout     time.Duration
	SessionTTL     time.Duration
	MaxUploadBytes int64
	LogLevel       string
}

// LoadClient reads client settings supporting both UPPER_CASE and lower_case keys.
func LoadClient() Client {
	return Client{
		BackendURL:     get([]string{"backend_url", "BACKEND_URL"}, DefaultBackendURL),
		HTTPTimeout:    time.Duration(getInt([]string{"http_timeout_sec", "HTTP_TIMEOUT_SEC"}, 0)) * time.Second,
		KeysFile:       get([]string{"keys_file", "KEYS_FILE"}, ""),
		Network:        get([]string{"network", "NETWORK"}, ""),
		CustomRPCURL:   get([]string{"custom_rpc_url", "CUSTOM_RPC_URL"}, ""),
		CustomChainID:  get([]string{"custom_chain_id", "CUSTOM_CHAIN_ID"}, ""),
		CustomSymbol:   get([]string{"custom_symbol", "CUSTOM_SYMBOL"}, ""),
		CustomExplorer: get([]string{"custom_explorer", "CUSTOM_EXPLORER"}, ""),
		Recipient:      get([]string{"recipient", "RECIPIENT"}, ""),
		Percentage:     get([]string{"percentage", "PERCENTAGE"}, ""),
		ReportDir:      get([]string{"report_dir", "REPORT_DIR"}, ""),
		LogLevel:       get([]string{"log_level", "LOG_LEVEL"}, "info"),
	}
}

// LoadServer reads backend settings.
func LoadServer() Server {
	return Server{
		ListenAddr:     get([]string{"listen_addr", "LISTEN_ADDR"}, DefaultListenAddr),
		RPCTimeout:     time.Duration(getInt([]string{"rpc_timeout_sec", "RPC_TIMEOUT_SEC"}, 60)) * time.Second,
		SessionTTL:     time.Duration(getInt([]string{"session_ttl_min", "SESSION_TTL_MIN"}, 300)) * time.Minute,
		MaxUploadBytes: int64(getInt([]string{"max_upload_kb", "MAX_UPLOAD_KB"}, 1024)) * 1024,
		LogLevel:       get([]string{"log_level", "LOG_LEVEL"}, "info"),
	}
}

func get(keys []string, def string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

func getInt(keys []string, def int) int {
	s := get(keys, "")
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
