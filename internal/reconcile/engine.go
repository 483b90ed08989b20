// Package reconcile brings a broker's object inventory in line with a
// declared desired state.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/ottermq/otterconf/internal/gateway"
	"github.com/ottermq/otterconf/pkg/metrics"
	"github.com/ottermq/otterconf/pkg/persistence"
	"github.com/ottermq/otterconf/pkg/persistence/implementations/dummy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mode selects whether a run creates missing objects.
type Mode string

const (
	ModeApply  Mode = "apply"
	ModeVerify Mode = "verify"
)

// Engine reconciles desired states against the broker behind a gateway.
// It keeps no state between runs.
type Engine struct {
	gateway gateway.Gateway
	metrics metrics.Recorder
	journal persistence.Journal
	source  string
	broker  string
}

type Option func(*Engine)

func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

func WithJournal(j persistence.Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithSource names the desired-state document in logs and the journal.
func WithSource(source string) Option {
	return func(e *Engine) {
		e.source = source
	}
}

// WithBroker names the broker address in logs and the journal.
func WithBroker(address string) Option {
	return func(e *Engine) {
		e.broker = address
	}
}

func NewEngine(gw gateway.Gateway, opts ...Option) *Engine {
	e := &Engine{
		gateway: gw,
		metrics: metrics.Discard,
		journal: &dummy.DummyJournal{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report counts the outcomes of a run.
type Report struct {
	RunID  string
	Mode   Mode
	counts map[models.Kind]map[models.Outcome]int
	errors int
}

func newReport(id string, mode Mode) *Report {
	return &Report{RunID: id, Mode: mode, counts: make(map[models.Kind]map[models.Outcome]int)}
}

func (r *Report) add(kind models.Kind, outcome models.Outcome) {
	if r.counts[kind] == nil {
		r.counts[kind] = make(map[models.Outcome]int)
	}
	r.counts[kind][outcome]++
}

// Count returns how many objects of kind ended with outcome.
func (r *Report) Count(kind models.Kind, outcome models.Outcome) int {
	return r.counts[kind][outcome]
}

// Errors returns the number of errors the run reported, fetch failures included.
func (r *Report) Errors() int {
	return r.errors
}

// Total returns how many objects of any kind ended with outcome.
func (r *Report) Total(outcome models.Outcome) int {
	n := 0
	for _, byOutcome := range r.counts {
		n += byOutcome[outcome]
	}
	return n
}

// Apply creates every declared object missing from the broker. It returns nil
// or an *AggregateError holding every problem found.
func (e *Engine) Apply(ctx context.Context, state *models.DesiredState) error {
	_, err := e.Run(ctx, ModeApply, state)
	return err
}

// Verify runs the same checks as Apply without creating anything. Missing
// objects are reported but are not errors.
func (e *Engine) Verify(ctx context.Context, state *models.DesiredState) error {
	_, err := e.Run(ctx, ModeVerify, state)
	return err
}

// Run reconciles state in the given mode. Kinds are processed in dependency
// order and a failure never stops the run; the report is returned even when
// the error is non-nil. ctx is only passed on to gateway calls.
func (e *Engine) Run(ctx context.Context, mode Mode, state *models.DesiredState) (*Report, error) {
	started := time.Now()
	id := uuid.NewString()
	r := &run{
		Engine:   e,
		ctx:      ctx,
		mode:     mode,
		state:    state,
		resolver: NewCredentialResolver(state, e.gateway.DefaultCredential()),
		report:   newReport(id, mode),
		errs:     &AggregateError{},
		log: log.With().
			Str("run", id).
			Str("mode", string(mode)).
			Logger(),
	}

	if err := e.journal.BeginRun(persistence.Run{
		ID:        id,
		Mode:      string(mode),
		Source:    e.source,
		Broker:    e.broker,
		StartedAt: started,
	}); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record run in journal")
	}
	r.log.Info().Str("source", e.source).Int("objects", state.Size()).Msg("Starting reconciliation")

	passes := []struct {
		kind     models.Kind
		declared int
		fn       func()
	}{
		{models.KindVHost, state.VHosts.Len(), r.reconcileVHosts},
		{models.KindUser, state.Users.Len(), r.reconcileUsers},
		{models.KindPermissions, state.Permissions.Len(), r.reconcilePermissions},
		{models.KindExchange, state.Exchanges.Len(), r.reconcileExchanges},
		{models.KindQueue, state.Queues.Len(), r.reconcileQueues},
		{models.KindBinding, state.Bindings.Len(), r.reconcileBindings},
	}
	for _, p := range passes {
		if p.declared == 0 {
			continue
		}
		passStarted := time.Now()
		p.fn()
		e.metrics.ObservePass(p.kind, time.Since(passStarted))
	}

	elapsed := time.Since(started)
	errCount := r.errs.Len()
	r.report.errors = errCount
	e.metrics.RecordRun(string(mode), errCount, elapsed)
	if err := e.journal.FinishRun(id, time.Now(), errCount); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record run completion in journal")
	}

	summary := r.log.Info()
	if errCount > 0 {
		summary = r.log.Error()
	}
	summary.
		Int("created", r.report.Total(models.OutcomeCreated)).
		Int("unchanged", r.report.Total(models.OutcomeUnchanged)).
		Int("missing", r.report.Total(models.OutcomeMissing)).
		Int("errors", errCount).
		Dur("elapsed", elapsed).
		Msg("Reconciliation finished")

	if errCount > 0 {
		return r.report, r.errs
	}
	return r.report, nil
}

// run is the state of a single Run call.
type run struct {
	*Engine
	ctx      context.Context
	mode     Mode
	state    *models.DesiredState
	resolver *CredentialResolver
	report   *Report
	errs     *AggregateError
	log      zerolog.Logger
}

// creator hides create actions from read-only runs.
func (r *run) creator(create func() error) func() error {
	if r.mode == ModeVerify {
		return nil
	}
	return create
}

// settle records the outcome of one declared object.
func (r *run) settle(kind models.Kind, key string, outcome models.Outcome, err error) {
	r.report.add(kind, outcome)
	r.metrics.RecordOutcome(kind, outcome)

	var detail string
	if err != nil {
		r.errs.add(err)
		detail = err.Error()
	}

	switch outcome {
	case models.OutcomeCreated:
		r.log.Info().Str("kind", string(kind)).Str("key", key).Msg("Created")
	case models.OutcomeUnchanged:
		r.log.Debug().Str("kind", string(kind)).Str("key", key).Msg("Already up to date")
	case models.OutcomeMissing:
		r.log.Warn().Str("kind", string(kind)).Str("key", key).Msg("Missing, will be created on apply")
	default:
		r.log.Error().Err(err).Str("kind", string(kind)).Str("key", key).Str("outcome", string(outcome)).Msg("Reconciliation error")
	}

	if jerr := r.journal.RecordObject(persistence.ObjectEntry{
		RunID:      r.report.RunID,
		Kind:       string(kind),
		Key:        key,
		Outcome:    string(outcome),
		Detail:     detail,
		RecordedAt: time.Now(),
	}); jerr != nil {
		r.log.Warn().Err(jerr).Str("key", key).Msg("Failed to record outcome in journal")
	}
}

// fetchFailed records a failed read; the objects it covered are skipped.
func (r *run) fetchFailed(kind models.Kind, scope string, err error) {
	r.errs.add(&FetchError{Kind: kind, Scope: scope, Err: err})
	r.metrics.RecordFetchError(kind)
	r.log.Error().Err(err).Str("kind", string(kind)).Str("scope", scope).Msg("Failed to fetch existing objects")
}

type scopedKey struct {
	key   string
	name  string
	vhost string
}

// parseKeys splits name@vhost keys, settling malformed ones as invalid.
func (r *run) parseKeys(kind models.Kind, keys []string) []scopedKey {
	parsed := make([]scopedKey, 0, len(keys))
	for _, key := range keys {
		name, vhost, err := models.ParseResourceKey(kind, key)
		if err != nil {
			r.settle(kind, key, models.OutcomeInvalid, &ConfigError{Kind: kind, Key: key, Err: err})
			continue
		}
		parsed = append(parsed, scopedKey{key: key, name: name, vhost: vhost})
	}
	return parsed
}

func (r *run) reconcileVHosts() {
	existing, err := r.gateway.ListVirtualHosts(r.ctx)
	if err != nil {
		r.fetchFailed(models.KindVHost, "", err)
		return
	}
	r.state.VHosts.Each(func(name string, declared models.VirtualHost) {
		observed, found := existing[name]
		outcome, err := ensurePresent(models.KindVHost, name, declared, observed, found, r.creator(func() error {
			return r.gateway.CreateVirtualHost(r.ctx, name, declared)
		}))
		r.settle(models.KindVHost, name, outcome, err)
	})
}

func (r *run) reconcileUsers() {
	existing, err := r.gateway.ListUsers(r.ctx)
	if err != nil {
		r.fetchFailed(models.KindUser, "", err)
		return
	}
	r.state.Users.Each(func(name string, declared models.User) {
		observed, found := existing[name]
		if found {
			// the broker only exposes a hash
			observed.Password = declared.Password
		}
		outcome, err := ensurePresent(models.KindUser, name, declared, observed, found, r.creator(func() error {
			return r.gateway.CreateUser(r.ctx, name, declared)
		}))
		r.settle(models.KindUser, name, outcome, err)
	})
}

func (r *run) reconcilePermissions() {
	keys := r.parseKeys(models.KindPermissions, r.state.Permissions.Keys())
	if len(keys) == 0 {
		return
	}
	existing, err := r.gateway.ListPermissions(r.ctx)
	if err != nil {
		r.fetchFailed(models.KindPermissions, "", err)
		return
	}
	for _, k := range keys {
		declared, _ := r.state.Permissions.Get(k.key)
		observed, found := existing[k.key]
		outcome, err := ensurePresent(models.KindPermissions, k.key, declared, observed, found, r.creator(func() error {
			return r.gateway.CreatePermissions(r.ctx, k.name, k.vhost, declared)
		}))
		r.settle(models.KindPermissions, k.key, outcome, err)
	}
}

func (r *run) reconcileExchanges() {
	for _, k := range r.parseKeys(models.KindExchange, r.state.Exchanges.Keys()) {
		declared, _ := r.state.Exchanges.Get(k.key)
		cred := r.resolver.Resolve(k.vhost, k.name)
		r.log.Debug().Str("key", k.key).Str("user", cred.Username).Msg("Resolved credential")

		observed, found, err := r.gateway.GetExchange(r.ctx, cred, k.vhost, k.name)
		if err != nil {
			r.fetchFailed(models.KindExchange, k.key, err)
			continue
		}
		outcome, err := ensurePresent(models.KindExchange, k.key, declared, observed, found, r.creator(func() error {
			return r.gateway.CreateExchange(r.ctx, cred, k.vhost, k.name, declared)
		}))
		r.settle(models.KindExchange, k.key, outcome, err)
	}
}

func (r *run) reconcileQueues() {
	for _, k := range r.parseKeys(models.KindQueue, r.state.Queues.Keys()) {
		declared, _ := r.state.Queues.Get(k.key)
		cred := r.resolver.Resolve(k.vhost, k.name)
		r.log.Debug().Str("key", k.key).Str("user", cred.Username).Msg("Resolved credential")

		observed, found, err := r.gateway.GetQueue(r.ctx, cred, k.vhost, k.name)
		if err != nil {
			r.fetchFailed(models.KindQueue, k.key, err)
			continue
		}
		outcome, err := ensurePresent(models.KindQueue, k.key, declared, observed, found, r.creator(func() error {
			return r.gateway.CreateQueue(r.ctx, cred, k.vhost, k.name, declared)
		}))
		r.settle(models.KindQueue, k.key, outcome, err)
	}
}

// bindingKey names one binding of an exchange@vhost owner in logs and errors.
func bindingKey(owner string, b models.Binding) string {
	return fmt.Sprintf("%s->%s:%s", owner, b.DestinationType, b.Destination)
}

// reconcileBindings treats the bindings of each exchange as a set: a declared
// binding is present when an equal one exists, so there is no conflict case.
func (r *run) reconcileBindings() {
	for _, k := range r.parseKeys(models.KindBinding, r.state.Bindings.Keys()) {
		declared, _ := r.state.Bindings.Get(k.key)
		cred := r.resolver.Resolve(k.vhost, k.name)
		r.log.Debug().Str("key", k.key).Str("user", cred.Username).Msg("Resolved credential")

		existing, err := r.gateway.ListBindings(r.ctx, cred, k.vhost)
		if err != nil {
			r.fetchFailed(models.KindBinding, k.key, err)
			continue
		}
		observed := existing[k.name]
		for _, b := range declared {
			key := bindingKey(k.key, b)
			if models.ContainsBinding(observed, b) {
				r.settle(models.KindBinding, key, models.OutcomeUnchanged, nil)
				continue
			}
			if r.mode == ModeVerify {
				r.settle(models.KindBinding, key, models.OutcomeMissing, nil)
				continue
			}
			if err := r.gateway.CreateBinding(r.ctx, cred, k.vhost, k.name, b); err != nil {
				r.settle(models.KindBinding, key, models.OutcomeFailed, &CreateError{Kind: models.KindBinding, Key: key, Err: err})
				continue
			}
			observed = append(observed, b)
			r.settle(models.KindBinding, key, models.OutcomeCreated, nil)
		}
	}
}
