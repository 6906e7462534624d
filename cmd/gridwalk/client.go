package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gridwalk/gridwalk/internal/component"
	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"github.com/gridwalk/gridwalk/internal/data"
	"github.com/gridwalk/gridwalk/internal/handler"
	"github.com/gridwalk/gridwalk/internal/movement"
	gonet "github.com/gridwalk/gridwalk/internal/net"
	"github.com/gridwalk/gridwalk/internal/net/packet"
	"github.com/gridwalk/gridwalk/internal/system"
	"github.com/gridwalk/gridwalk/internal/view"
	"github.com/gridwalk/gridwalk/internal/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type joinFlags struct {
	name        string
	description string
	vocation    uint8
	gender      uint8
}

func (f *joinFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "character name")
	cmd.Flags().StringVar(&f.description, "description", "", "character description")
	cmd.Flags().Uint8Var(&f.vocation, "vocation", 0, "character vocation")
	cmd.Flags().Uint8Var(&f.gender, "gender", 0, "character gender")
	_ = cmd.MarkFlagRequired("name")
}

func (f *joinFlags) request() packet.JoinRequest {
	return packet.JoinRequest{
		Name:        f.name,
		Description: f.description,
		Vocation:    f.vocation,
		Gender:      f.gender,
	}
}

func newClientCmd(a *app) *cobra.Command {
	var jf joinFlags
	cmd := &cobra.Command{
		Use:         "client",
		Short:       "Join a server and walk with the keyboard",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConsole: "off"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			term, err := view.Open(a.log.Named("view"))
			if err != nil {
				return err
			}
			defer term.Close()
			go term.Run()
			return runClient(a, jf.request(), term.Input(), term.Chat(), term, term.Done())
		},
	}
	jf.register(cmd)
	return cmd
}

func newBotCmd(a *app) *cobra.Command {
	var (
		jf    joinFlags
		moves string
	)
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Join a server and walk a fixed route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			route, err := parseRoute(moves)
			if err != nil {
				return err
			}
			input := make(chan component.GridDelta, 1)
			p := &botPresenter{route: route, input: input, log: a.log.Named("bot")}
			return runClient(a, jf.request(), input, nil, p, nil)
		},
	}
	jf.register(cmd)
	cmd.Flags().StringVar(&moves, "moves", "E,E,S,S,W,W,N,N", "comma separated headings, walked in a loop")
	return cmd
}

// runClient connects, joins and ticks until the server goes away, done
// fires or a signal arrives.
func runClient(a *app, join packet.JoinRequest, input <-chan component.GridDelta, chat <-chan string, p system.Presenter, done <-chan struct{}) error {
	cfg, log := a.cfg, a.log

	// The local map is only used for prediction; a missing or mismatched
	// file is replaced once the server's Welcome arrives.
	m, err := data.LoadGridMap(cfg.Map.File, cfg.Map.Name)
	if err != nil {
		log.Warn("載入本地地圖失敗", zap.Error(err))
		m = nil
	}
	tileSize := int32(data.DefaultTileSize)
	if m != nil {
		tileSize = m.TileSize()
	}

	met, stopMetrics, err := newMetrics(cfg.Metrics, "gridwalk-client")
	if err != nil {
		return err
	}
	defer stopMetrics()

	opts := transportOptions(cfg, gonet.RoleClient)
	opts.DialTimeout = 5 * time.Second
	tr := gonet.NewTransport(opts, log.Named("net"))
	tr.SetMetrics(met)

	deps := handler.NewDeps(cfg, log, world.New(tileSize), m, tr)
	deps.Metrics = met
	handler.RegisterClient(tr.Handlers(), deps)

	if err := tr.Start(); err != nil {
		return fmt.Errorf("connect %s: %w", opts.Address, err)
	}
	deps.ServerPeer = tr.ServerPeer()

	lost := make(chan struct{})
	lifecycle := system.NewClientLifecycleSystem(tr.Peers(), deps,
		func() { tr.Send(gonet.Reliable, deps.ServerPeer, join) },
		func() { close(lost) },
	)

	runner := coresys.NewRunner(log)
	runner.SetMetrics(met)
	runner.Register(system.NewReceiveSystem(tr))
	runner.Register(lifecycle)
	if bp, ok := p.(*botPresenter); ok {
		runner.Register(&botDriver{presenter: bp, deps: deps})
	}
	runner.Register(system.NewInputSystem(input, deps))
	runner.Register(system.NewChatInputSystem(chat, deps))
	runner.Register(system.NewClientPredictSystem(deps))
	runner.Register(system.NewRemoteMoveSystem(deps))
	runner.Register(system.NewProgressSystem(deps))
	runner.Register(system.NewPresentSystem(deps, p))
	runner.Register(system.NewSendSystem(tr))
	if err := runner.Initialize(); err != nil {
		tr.Close()
		return fmt.Errorf("systems: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-lost:
		case <-done:
		}
		close(stop)
	}()
	runLoop(runner, cfg.Network.TickRate, stop, log)

	tr.Close()
	runner.Dispose()
	if lifecycle.Lost() {
		return fmt.Errorf("lost connection to %s", opts.Address)
	}
	return nil
}

func parseRoute(s string) ([]component.GridDelta, error) {
	var route []component.GridDelta
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		dir, ok := component.ParseDirection(part)
		if !ok || dir == component.DirNone {
			return nil, fmt.Errorf("unknown heading %q", part)
		}
		route = append(route, dir.Delta())
	}
	if len(route) == 0 {
		return nil, fmt.Errorf("empty route")
	}
	return route, nil
}

// botPresenter logs where the bot's character lands and any chat it sees.
type botPresenter struct {
	route []component.GridDelta
	next  int
	input chan component.GridDelta
	log   *zap.Logger

	last component.GridPosition
	seen bool
}

func (b *botPresenter) Present(f system.Frame) {
	for _, l := range f.Chat {
		b.log.Info("聊天", zap.String("name", l.Name), zap.String("text", l.Text))
	}
	for _, e := range f.Entities {
		if !e.Local || e.Moving {
			continue
		}
		if !b.seen || e.Grid != b.last {
			b.log.Info("抵達", zap.Stringer("pos", e.Grid), zap.Stringer("facing", e.Facing))
		}
		b.last, b.seen = e.Grid, true
	}
}

// botDriver feeds the next heading of the route whenever the local player is
// idle. Phase 0 (Receive), ahead of InputSystem.
type botDriver struct {
	presenter *botPresenter
	deps      *handler.Deps
}

func (d *botDriver) Phase() coresys.Phase { return coresys.PhaseReceive }

func (d *botDriver) Update(_ time.Duration) {
	me, ok := d.deps.World.LocalPlayer()
	if !ok || movement.StateOf(d.deps.World, me) != movement.Idle {
		return
	}
	b := d.presenter
	select {
	case b.input <- b.route[b.next%len(b.route)]:
		b.next++
	default:
	}
}
