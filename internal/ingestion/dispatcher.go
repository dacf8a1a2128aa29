package ingestion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"BarterLedger/internal/command"
	"BarterLedger/internal/engine"
	"BarterLedger/internal/inventory"
	"BarterLedger/internal/notify"
	"BarterLedger/internal/observability"
	"BarterLedger/internal/policy"
	"BarterLedger/internal/trade"
)

// Dispatcher drains the raw command channel, parses and deduplicates
// each command, runs the policy prechecks that sit in front of the state
// machine, and invokes the engine. It is the single consumer of the
// channel; commands are processed strictly in arrival order.
type Dispatcher struct {
	commandChan <-chan RawCommand
	subjects    map[string]string // subject -> command type

	engine    *engine.Engine
	directory *inventory.Directory
	store     *policy.Store
	notifier  notify.Notifier
	dedup     *Deduper

	policyPath string // policy state is saved here after each update

	metrics *observability.Metrics
	log     zerolog.Logger
}

// DispatcherConfig carries the dispatcher's collaborators.
type DispatcherConfig struct {
	CommandChan <-chan RawCommand
	Subjects    []SubjectConfig
	Engine      *engine.Engine
	Directory   *inventory.Directory
	Store       *policy.Store
	Notifier    notify.Notifier
	DedupSize   int
	PolicyPath  string
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
}

// NewDispatcher builds a dispatcher for the given subject set.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	subjects := make(map[string]string, len(cfg.Subjects))
	for _, s := range cfg.Subjects {
		subjects[s.Subject] = s.CommandType
	}
	size := cfg.DedupSize
	if size <= 0 {
		size = 65536
	}
	dedup := NewDeduper(size)
	if cfg.Metrics != nil {
		dedup.OnEvict(func() { cfg.Metrics.DedupLRUEvictions.Inc() })
	}
	return &Dispatcher{
		commandChan: cfg.CommandChan,
		subjects:    subjects,
		engine:      cfg.Engine,
		directory:   cfg.Directory,
		store:       cfg.Store,
		notifier:    cfg.Notifier,
		dedup:       dedup,
		policyPath:  cfg.PolicyPath,
		metrics:     cfg.Metrics,
		log:         cfg.Logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Run processes commands until ctx is cancelled or the channel closes.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-d.commandChan:
			if !ok {
				return nil
			}
			d.handle(raw)
		}
	}
}

func (d *Dispatcher) handle(raw RawCommand) {
	commandType, ok := d.subjects[raw.Subject]
	if !ok {
		d.log.Warn().Str("subject", raw.Subject).Msg("unmapped subject")
		raw.AckFunc()
		return
	}
	if d.metrics != nil {
		d.metrics.CommandsReceived.WithLabelValues(commandType).Inc()
	}

	cmd, err := ParseRawCommand(raw, commandType)
	if err != nil {
		// Malformed payloads never become valid; ack so they are not
		// redelivered.
		d.reject(commandType, "parse")
		d.log.Warn().Err(err).Str("type", commandType).Msg("command rejected")
		raw.AckFunc()
		return
	}

	if d.dedup.IsDuplicate(cmd.Type(), cmd.CID().String()) {
		if d.metrics != nil {
			d.metrics.CommandDuplicates.Inc()
		}
		raw.AckFunc()
		return
	}

	if err := d.dispatch(cmd); err != nil {
		// Business failures are final for this command; the actors were
		// notified. Only the dedup mark distinguishes them from success.
		d.log.Debug().Err(err).Str("type", cmd.Type()).Msg("command failed")
	}

	d.dedup.MarkProcessed(cmd.Type(), cmd.CID().String())
	if d.metrics != nil {
		d.metrics.DedupLRUSize.Set(float64(d.dedup.Size()))
	}
	raw.AckFunc()
}

func (d *Dispatcher) dispatch(cmd command.Command) error {
	switch c := cmd.(type) {
	case *command.CreateTrade:
		return d.handleCreate(c)
	case *command.AcceptTrade:
		return d.handleAccept(c)
	case *command.DenyTrade:
		return d.handleDeny(c)
	case *command.BargainTrade:
		return d.handleBargain(c)
	case *command.RegisterActor:
		d.directory.Register(c.ActorID, c.Name)
		return nil
	case *command.GrantBundle:
		return d.handleGrant(c)
	case *command.PolicyUpdate:
		return d.handlePolicy(c)
	default:
		return fmt.Errorf("unhandled command type %s", cmd.Type())
	}
}

// handleCreate runs the creation prechecks the state machine leaves to
// its caller: target reachable, neither party banned, offered kind not
// blocked for the initiator.
func (d *Dispatcher) handleCreate(c *command.CreateTrade) error {
	if !d.directory.Known(c.TargetID) {
		d.reject(c.Type(), "target_unknown")
		d.notifier.Notify(c.InitiatorID, "trade target is not available")
		return inventory.ErrUnknownActor
	}
	if d.store.IsBanned(c.InitiatorID) || d.store.IsBanned(c.TargetID) {
		d.reject(c.Type(), "banned")
		d.notifier.Notify(c.InitiatorID, "trading is not permitted for one of the parties")
		return trade.ErrPolicyBlocked
	}
	if d.store.IsBlocked(c.Offered.Kind, c.InitiatorID) {
		d.reject(c.Type(), "blocked_kind")
		d.notifier.Notify(c.InitiatorID, fmt.Sprintf("you may not offer %s", c.Offered.Kind))
		return trade.ErrPolicyBlocked
	}

	_, err := d.engine.Create(c.InitiatorID, c.TargetID, c.Offered,
		c.Kind1, c.Amount1, c.Kind2, c.Amount2, c.Note)
	if err != nil {
		d.reject(c.Type(), "invalid")
		d.notifier.Notify(c.InitiatorID, fmt.Sprintf("trade rejected: %v", err))
	}
	return err
}

func (d *Dispatcher) handleAccept(c *command.AcceptTrade) error {
	tradeID, ok := d.engine.FindBetween(c.ActorID, c.CounterpartyID)
	if !ok {
		d.reject(c.Type(), "not_found")
		d.notifier.Notify(c.ActorID, "no pending trade with that actor")
		return trade.ErrNotFound
	}
	return d.engine.Accept(c.ActorID, tradeID)
}

func (d *Dispatcher) handleDeny(c *command.DenyTrade) error {
	tradeID, ok := d.engine.FindBetween(c.ActorID, c.CounterpartyID)
	if !ok {
		d.reject(c.Type(), "not_found")
		d.notifier.Notify(c.ActorID, "no pending trade with that actor")
		return trade.ErrNotFound
	}
	return d.engine.Deny(c.ActorID, tradeID)
}

func (d *Dispatcher) handleBargain(c *command.BargainTrade) error {
	tradeID, ok := d.engine.FindBetween(c.ActorID, c.CounterpartyID)
	if !ok {
		d.reject(c.Type(), "not_found")
		d.notifier.Notify(c.ActorID, "no pending trade with that actor")
		return trade.ErrNotFound
	}
	return d.engine.Bargain(c.ActorID, tradeID, c.NewAmount1, c.NewAmount2)
}

func (d *Dispatcher) handleGrant(c *command.GrantBundle) error {
	container, err := d.directory.Resolve(c.ActorID)
	if err != nil {
		d.reject(c.Type(), "actor_unknown")
		return err
	}
	if err := container.Add(c.Bundle); err != nil {
		d.reject(c.Type(), "no_space")
		d.notifier.Notify(c.ActorID, fmt.Sprintf("grant of %dx%s did not fit", c.Bundle.Count, c.Bundle.Kind))
		return err
	}
	return nil
}

func (d *Dispatcher) handlePolicy(c *command.PolicyUpdate) error {
	switch c.Action {
	case command.PolicyBan:
		d.store.Ban(c.ActorID, c.Duration)
	case command.PolicyUnban:
		d.store.Unban(c.ActorID)
	case command.PolicyBlock:
		d.store.BlockGlobal(c.Kind)
	case command.PolicyUnblock:
		d.store.UnblockGlobal(c.Kind)
	case command.PolicyBlockFor:
		d.store.BlockFor(c.ActorID, c.Kind)
	case command.PolicyUnblockFor:
		d.store.UnblockFor(c.ActorID, c.Kind)
	case command.PolicyAliasSet:
		d.store.SetAlias(c.Code, c.Kind)
	case command.PolicyAliasRemove:
		d.store.RemoveAlias(c.Code)
	case command.PolicyInfinite:
		d.store.SetInfiniteMode(c.ActorID, c.Enable)
	default:
		d.reject(c.Type(), "unknown_action")
		return fmt.Errorf("unknown policy action %s", c.Action)
	}

	if d.policyPath != "" {
		if err := d.store.Save(d.policyPath); err != nil {
			d.log.Error().Err(err).Msg("policy save failed")
		}
	}
	return nil
}

func (d *Dispatcher) reject(commandType, reason string) {
	if d.metrics != nil {
		d.metrics.CommandsRejected.WithLabelValues(commandType, reason).Inc()
	}
}
