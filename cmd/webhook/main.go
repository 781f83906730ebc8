// The webhook binary is a small deploy receiver, unrelated to the
// moderation bot: an authenticated POST triggers the redeploy script.
// It shares no state with the bot process.
package main

import (
	"crypto/subtle"
	"net/http"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/example/curfewbot/internal/config"
	"github.com/example/curfewbot/internal/logger"
)

func main() {
	cfg, err := config.LoadWebhook()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Secret)) != 1 {
			log.Warn("webhook rejected", zap.String("remote", r.RemoteAddr))
			w.WriteHeader(http.StatusForbidden)
			return
		}

		log.Info("redeploy requested", zap.String("remote", r.RemoteAddr))
		go runReinstall(log, cfg.ReinstallScript)
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	log.Info("webhook listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("webhook server failed", zap.Error(err))
	}
}

// runReinstall waits for the 200 response to flush to the caller, then
// hands off to the redeploy script.
func runReinstall(log *zap.Logger, script string) {
	time.Sleep(time.Second)
	out, err := exec.Command("sh", script).CombinedOutput()
	if err != nil {
		log.Error("reinstall failed", zap.Error(err), zap.ByteString("output", out))
		return
	}
	log.Info("reinstall finished", zap.ByteString("output", out))
}
