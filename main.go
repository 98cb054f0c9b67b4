package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cursorworld/content"
	"cursorworld/server"
)

// 入口：加载配置与关卡，启动 HTTP + WebSocket 服务和 Tick 循环
func main() {
	var (
		configPath string
		addr       string
		levelsPath string
	)
	flag.StringVar(&configPath, "config", "", "path to server config yaml (optional)")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides config)")
	flag.StringVar(&levelsPath, "levels", "", "path to levels yaml (overrides config; default: built-in levels)")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if levelsPath != "" {
		cfg.LevelsPath = levelsPath
	}

	// 使用第三方 zap 日志库（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	doc, err := content.Load(cfg.LevelsPath)
	if err != nil {
		server.Log.Fatalf("load levels: %v", err)
	}
	levels, err := content.Build(doc, content.Options{Logger: server.Log, Limits: cfg.Limits})
	if err != nil {
		server.Log.Fatalf("build levels: %v", err)
	}
	lm, err := server.NewLevelManager(cfg, levels, server.Log)
	if err != nil {
		server.Log.Fatalf("level manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lm.StartTicker(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", lm.HandleWS)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir("web")))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", lm.HandleAdminConfig)
	mux.HandleFunc("/admin/levels", lm.HandleLevels)
	mux.HandleFunc("/admin/occupant", lm.HandleOccupant)
	mux.HandleFunc("/metrics", lm.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		server.Log.Infof("listening on %s at %d TPS", cfg.Addr, cfg.TickRateHz)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
}
