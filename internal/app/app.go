// Package app assembles the engine and its collaborators from configuration.
// Package app 根据配置组装引擎及其协作者。
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/netxfw/netguard/internal/api"
	"github.com/netxfw/netguard/internal/backend"
	"github.com/netxfw/netguard/internal/config"
	"github.com/netxfw/netguard/internal/core"
	"github.com/netxfw/netguard/internal/impact"
	"github.com/netxfw/netguard/internal/logs"
	"github.com/netxfw/netguard/internal/rollback"
	"github.com/netxfw/netguard/internal/safety"
	"github.com/netxfw/netguard/internal/utils/logger"
	"github.com/netxfw/netguard/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// Options adjusts assembly for the caller.
// Options 为调用方调整组装方式。
type Options struct {
	// DryRun swaps the packet filter and the store for in-memory versions.
	// DryRun 将包过滤器与存储替换为内存实现。
	DryRun bool
	// Backend overrides the packet filter, mainly for tests.
	Backend backend.Backend
	// PidFile is written by Serve and removed when it returns. Empty skips it.
	// PidFile 由 Serve 写入并在返回时删除。为空则跳过。
	PidFile string
}

// App owns the engine and the handles it needs closed.
// App 持有引擎及需要关闭的句柄。
type App struct {
	Engine *core.Engine
	Config *config.ConfigManager

	db      storage.Database
	pidFile string
}

// New builds an App from the manager's current configuration.
// New 根据管理器当前配置构建 App。
func New(ctx context.Context, cm *config.ConfigManager, opts Options) (*App, error) {
	cfg := cm.GetConfig()

	b := opts.Backend
	driver, path := cfg.Storage.Driver, cfg.Storage.Path
	if opts.DryRun {
		if b == nil {
			b = backend.NewMockBackend()
		}
		driver, path = storage.DriverSQLite, ":memory:"
		logger.Get(ctx).Infof("[OK] Dry run: no packet filter or store changes will persist")
	}
	if b == nil {
		ipt, err := backend.NewIPTables(backend.Options{
			Table:     cfg.Base.Table,
			Chain:     cfg.Base.Chain,
			HookChain: cfg.Base.HookChain,
			Timeout:   cfg.Base.CommandTimeoutDuration(),
			Wait:      cfg.Base.Wait,
		})
		if err != nil {
			return nil, err
		}
		b = ipt
	}

	db, err := storage.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open %s store %s: %w", driver, path, err)
	}

	gate, err := safety.NewGate(safety.Criticals{
		IPs:   cfg.Safety.CriticalIPs,
		Ports: cfg.Safety.CriticalPorts,
		Rules: cfg.Safety.CriticalRules,
	}, safety.NewFileMode(cfg.Safety.SafeModeFile))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	analyzer := impact.New(impact.Options{
		Enabled:   cfg.Impact.Enabled,
		Timeout:   cfg.Impact.TimeoutDuration(),
		PingCount: cfg.Impact.PingCount,
	}, impact.ICMPPinger{Privileged: cfg.Impact.Privileged}, impact.SocketTable{})

	var logSource core.LogSource
	if cfg.Logging.Enabled && cfg.Logging.Path != "" {
		logSource = logs.NewFile(cfg.Logging.Path)
	}

	eng, err := core.New(core.Options{
		Backend: b,
		Store:   db,
		Journal: rollback.New(db, db, b),
		Gate:    gate,
		Prober:  analyzer,
		Logs:    logSource,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &App{Engine: eng, Config: cm, db: db, pidFile: opts.PidFile}, nil
}

// Close releases the store.
// Close 释放存储。
func (a *App) Close() error {
	return a.db.Close()
}

// Serve reconciles the rule group, then runs the API until ctx is done.
// SIGHUP reloads web, metrics and logging settings; the critical set and
// storage are fixed for the life of the process.
// Serve 先对齐规则组，然后运行 API 直到 ctx 结束。
// SIGHUP 重新加载 web、指标与日志设置；关键目标集合与存储在进程生命周期内不变。
func (a *App) Serve(ctx context.Context) error {
	log := logger.Get(ctx)
	if !a.Config.GetWebConfig().Enabled {
		return errors.New("web.enabled is false; nothing to serve")
	}

	if a.pidFile != "" {
		if err := writePidFile(a.pidFile); err != nil {
			return err
		}
		defer func() {
			if err := removePidFile(a.pidFile); err != nil {
				log.Warnf("[WARN]  %v", err)
			}
		}()
	}

	if err := a.Engine.Init(ctx); err != nil {
		log.Warnf("[WARN]  Reconcile finished with errors: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	server := api.NewServer(a.Engine, a.Config)
	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		return a.reloadOnHangup(ctx)
	})
	return g.Wait()
}

func (a *App) reloadOnHangup(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			a.Reload(ctx)
		}
	}
}

// Reload re-reads the configuration file, keeping the old one on error.
// Reload 重新读取配置文件，出错时保留旧配置。
func (a *App) Reload(ctx context.Context) {
	log := logger.Get(ctx)
	if err := a.Config.LoadConfig(); err != nil {
		log.Errorf("[ERROR] Reload failed, keeping previous configuration: %v", err)
		return
	}
	logger.Init(*a.Config.GetLoggingConfig())
	log.Infof("[OK] Configuration reloaded from %s", a.Config.GetConfigPath())
}
