package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gridwalk/gridwalk/internal/config"
	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"github.com/gridwalk/gridwalk/internal/data"
	"github.com/gridwalk/gridwalk/internal/handler"
	gonet "github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/persist"
	"github.com/gridwalk/gridwalk/internal/scripting"
	"github.com/gridwalk/gridwalk/internal/system"
	"github.com/gridwalk/gridwalk/internal/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownGrace bounds how long queued PlayerLeft frames may take to leave.
const shutdownGrace = 2 * time.Second

func newServerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the authoritative server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(a)
		},
	}
}

func runServer(a *app) error {
	cfg, log := a.cfg, a.log
	printBanner("server", cfg.Server.Name)

	// 1. Map
	printSection("資料載入")
	m, err := data.LoadGridMap(cfg.Map.File, cfg.Map.Name)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	printOK(fmt.Sprintf("地圖 %s (%dx%d)", m.Name(), m.Width(), m.Height()))

	// 2. Character store
	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Chat script
	engine, err := scripting.NewEngine(cfg.Scripting.ChatScript, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	fmt.Println()

	met, stopMetrics, err := newMetrics(cfg.Metrics, "gridwalk-server")
	if err != nil {
		return err
	}
	defer stopMetrics()

	// 4. Transport and handlers
	tr := gonet.NewTransport(transportOptions(cfg, gonet.RoleServer), log.Named("net"))
	tr.SetMetrics(met)

	deps := handler.NewDeps(cfg, log, world.New(m.TileSize()), m, tr)
	deps.Metrics = met
	deps.Store = store
	deps.Scripting = engine
	handler.RegisterServer(tr.Handlers(), deps)

	if err := tr.Start(); err != nil {
		return fmt.Errorf("net server: %w", err)
	}

	// 5. Systems
	runner := coresys.NewRunner(log)
	runner.SetMetrics(met)
	runner.Register(system.NewReceiveSystem(tr))
	runner.Register(system.NewServerLifecycleSystem(tr.Peers(), deps))
	runner.Register(system.NewServerMoveSystem(deps))
	runner.Register(system.NewProgressSystem(deps))
	runner.Register(system.NewChatSystem(deps))
	runner.Register(system.NewSendSystem(tr))
	if err := runner.Initialize(); err != nil {
		tr.Close()
		return fmt.Errorf("systems: %w", err)
	}

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s (%s)", tr.Addr(), cfg.Network.Transport))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	runLoop(runner, cfg.Network.TickRate, nil, log)

	// Disconnecting everyone saves their positions before the store closes.
	for _, id := range tr.Peers().IDs() {
		handler.HandleLeave(id, deps)
	}
	tr.Shutdown(shutdownGrace)
	runner.Dispose()
	log.Info("伺服器已停止", zap.Duration("uptime", time.Since(time.Unix(cfg.Server.StartTime, 0)).Round(time.Second)))
	return nil
}

// openStore connects to PostgreSQL when a DSN is configured and falls back
// to an in-memory store otherwise.
func openStore(cfg *config.Config, log *zap.Logger) (persist.CharacterStore, func(), error) {
	if cfg.Database.DSN == "" {
		printOK("角色資料使用記憶體儲存")
		return persist.NewMemoryStore(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL 連線成功")

	if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	printOK("資料庫遷移完成")
	return persist.NewCharacterRepo(db), db.Close, nil
}
