package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/combat"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/config"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/game"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/logging"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/realtime"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/remote"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/view"
)

func main() {
	// ===== Config =====
	cfg, err := config.LoadClient()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		config.Exitf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientID, err := loadClientID(cfg.Dir)
	if err != nil {
		config.Exitf("client id: %v", err)
	}

	// ===== Connect =====
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	sock, err := remote.Dial(dialCtx, cfg.ServerURL, cfg.Room, remote.WithSocketLogger(logger))
	cancel()
	if err != nil {
		config.Exitf("connect %s: %v", cfg.ServerURL, err)
	}
	defer sock.Close()
	docs := remote.NewClient(cfg.ServerURL, remote.WithSocket(sock))
	session := realtime.NewSession(clientID, cfg.Room, sock, realtime.WithSessionLogger(logger))

	ctl, err := view.Open(cfg.Dir, clientID, cfg.Room, view.WithLogger(logger))
	if err != nil {
		config.Exitf("view settings: %v", err)
	}
	sounds := view.NewSoundGate(ctl, combat.NotifierFunc(func(e combat.Event) {
		log.Debugf("room %s: sound %s", e.Room, e.Kind)
	}))

	store, err := combat.NewStore(cfg.Room, docs,
		combat.WithPublisher(session),
		combat.WithNotifier(sounds),
		combat.WithLogger(logger),
	)
	if err != nil {
		config.Exitf("combat store: %v", err)
	}
	if err := store.Sync(ctx); err != nil {
		config.Exitf("sync room %s: %v", cfg.Room, err)
	}
	unwatch, err := store.Watch()
	if err != nil {
		config.Exitf("watch room %s: %v", cfg.Room, err)
	}
	defer unwatch()
	unlisten, err := session.Start(store.HandleMessage)
	if err != nil {
		config.Exitf("listen room %s: %v", cfg.Room, err)
	}
	defer unlisten()

	viewing, err := ctl.Resume(store.Snapshot().IsActive)
	if err != nil {
		log.Warnf("room %s: restore view: %v", cfg.Room, err)
	}
	log.Infof("room %s: joined as %s (viewing=%v, channel=%s)", cfg.Room, clientID, viewing, sock.Channel())

	// ===== Skirmish =====
	if err := skirmish(ctx, store, ctl, clientID, cfg.Rounds, log); err != nil {
		log.Errorf("room %s: %v", cfg.Room, err)
		os.Exit(1)
	}
}

// skirmish enters combat if needed, spawns a random encounter and trades
// fire for the given number of rounds.
func skirmish(ctx context.Context, store *combat.Store, ctl *view.Controller, clientID string, rounds int, log *zap.SugaredLogger) error {
	if !store.Snapshot().IsActive {
		if err := store.EnterCombat(ctx); err != nil {
			return err
		}
	}
	if err := ctl.Join(); err != nil {
		log.Warnf("room %s: join view: %v", store.Room(), err)
	}

	pilot := models.CharacterID("bot-" + clientID[:min(8, len(clientID))])
	for _, st := range []models.StationID{models.StationPilot, models.StationGunner1} {
		if err := store.AssignStation(ctx, st, pilot); err != nil {
			return err
		}
	}

	spawned, err := store.SpawnRandom(ctx)
	if err != nil {
		return err
	}
	log.Infof("room %s: %d contact(s) on scope", store.Room(), len(spawned))

	for round := 1; round <= rounds && store.ActiveEnemyCount() > 0; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Infof("room %s: round %d", store.Room(), round)
		for _, e := range store.Snapshot().Enemies {
			if e.Status != models.StatusActive {
				continue
			}
			out, err := store.PerformStationAction(ctx, models.StationGunner1, game.ActionFireLaserTurret, game.ActionRequest{
				Ability:  1,
				TargetID: e.ID,
			})
			if err != nil {
				return err
			}
			log.Infof("room %s: %s", store.Room(), out.Entry.Message)
		}
		for _, e := range store.Snapshot().Enemies {
			if e.Status != models.StatusActive {
				continue
			}
			rep, err := store.RollEnemyAttack(ctx, e.ID)
			if err != nil {
				return err
			}
			if rep.Damage.Total > 0 {
				if err := store.ModifyArmor(ctx, -1); err != nil {
					return err
				}
			}
			if e.HP.Max != nil && e.HP.Current*2 < *e.HP.Max {
				if _, err := store.RollEnemyMorale(ctx, e.ID); err != nil {
					if !apperrors.HasCode(err, apperrors.CodeInvalidOperation) {
						return err
					}
					log.Debugf("room %s: morale: %v", store.Room(), err)
				}
			}
		}
	}

	if store.ActiveEnemyCount() == 0 {
		log.Infof("room %s: all contacts cleared", store.Room())
		if err := store.ExitCombat(ctx); err != nil {
			return err
		}
		if _, err := ctl.Resume(false); err != nil {
			log.Warnf("room %s: clear view: %v", store.Room(), err)
		}
	} else {
		log.Infof("room %s: %d contact(s) still active after %d rounds", store.Room(), store.ActiveEnemyCount(), rounds)
	}
	return nil
}

// loadClientID returns the id kept in dir, creating one on first run.
func loadClientID(dir string) (string, error) {
	path := filepath.Join(dir, "client-id")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}
	id := realtime.NewClientID()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", err
	}
	return id, nil
}
