package market

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonandersen/emkt/internal/coordinator"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

// Backend is the part of the marketplace API a session talks to.
// *marketapi.Client implements it.
type Backend interface {
	ListContracts(ctx context.Context, q marketapi.ContractQuery) ([]marketapi.Contract, error)
	CompareContracts(ctx context.Context, ids []int) (*marketapi.Comparison, error)
	GetPortfolio(ctx context.Context, userID int) (*marketapi.Portfolio, error)
	GetPortfolioMetrics(ctx context.Context, userID int) (*marketapi.PortfolioMetrics, error)
	AddContract(ctx context.Context, userID, contractID int) (*marketapi.Holding, error)
	RemoveContract(ctx context.Context, userID, contractID int) error
}

// Messages shown when a failure carries no text of its own.
const (
	MsgContractsFailed  = "Unable to load contracts."
	MsgComparisonFailed = "Unable to compare contracts."
	MsgPortfolioFailed  = "Unable to load portfolio."
	MsgAddFailed        = "Unable to add contract to portfolio."
	MsgRemoveFailed     = "Unable to remove contract from portfolio."
)

// DefaultUserID is the portfolio owner when none is configured.
const DefaultUserID = 1

// PortfolioSnapshot is a portfolio's holdings together with the metrics
// computed from them. The two are always fetched and committed as one unit.
type PortfolioSnapshot struct {
	Holdings []marketapi.Holding       `json:"holdings"`
	Metrics  marketapi.PortfolioMetrics `json:"metrics"`
}

// ContractsMsg carries the settlement of a contracts request.
type ContractsMsg struct {
	coordinator.Settlement[[]marketapi.Contract]
}

// ComparisonMsg carries the settlement of a comparison request.
type ComparisonMsg struct {
	coordinator.Settlement[*marketapi.Comparison]
}

// PortfolioMsg carries the settlement of a portfolio request.
type PortfolioMsg struct {
	coordinator.Settlement[PortfolioSnapshot]
}

// DebounceMsg is delivered when a scheduled contracts reload is due.
type DebounceMsg struct {
	Gen uint64
}

// MutationOp is a portfolio mutation.
type MutationOp int

const (
	OpAdd MutationOp = iota
	OpRemove
)

func (op MutationOp) String() string {
	if op == OpRemove {
		return "remove"
	}
	return "add"
}

func (op MutationOp) fallback() string {
	if op == OpRemove {
		return MsgRemoveFailed
	}
	return MsgAddFailed
}

// MutationMsg reports the outcome of a portfolio add or remove.
type MutationMsg struct {
	Op         MutationOp
	ContractID int
	Err        error
}

// Scheduler returns a command that delivers msg after d.
type Scheduler func(d time.Duration, msg tea.Msg) tea.Cmd

// Options configures a Session.
type Options struct {
	UserID    int
	PageLimit int
	Debounce  time.Duration
	Logger    *zap.Logger
	Schedule  Scheduler
	Now       func() time.Time
}

// Session is the state machine behind the marketplace UI. Its methods must be
// called from a single event loop. Methods that start work return a tea.Cmd;
// the messages those commands produce are fed back through Update.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	backend  Backend
	userID   int
	limit    int
	logger   *zap.Logger
	schedule Scheduler
	now      func() time.Time

	filters FilterState
	sort    SortState
	trigger *coordinator.Trigger
	pending Change

	contracts   *coordinator.Family[marketapi.ContractQuery, []marketapi.Contract]
	requestKind Change
	settledKind Change
	lastUpdated time.Time

	selection  Selection
	comparison *coordinator.Family[[]int, *marketapi.Comparison]

	portfolio      *coordinator.Family[int, PortfolioSnapshot]
	held           IDSet
	updating       IDSet
	awaitingReload IDSet
	notice         string
}

// NewSession creates a session with default filters and no data loaded.
func NewSession(backend Backend, opts Options) *Session {
	if opts.UserID <= 0 {
		opts.UserID = DefaultUserID
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = marketapi.DefaultPageLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Schedule == nil {
		opts.Schedule = tickAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ctx:            ctx,
		cancel:         cancel,
		backend:        backend,
		userID:         opts.UserID,
		limit:          opts.PageLimit,
		logger:         opts.Logger,
		schedule:       opts.Schedule,
		now:            opts.Now,
		filters:        DefaultFilters(),
		sort:           DefaultSort(),
		trigger:        coordinator.NewTrigger(opts.Debounce),
		held:           IDSet{},
		updating:       IDSet{},
		awaitingReload: IDSet{},
	}

	s.contracts = coordinator.NewFamily[marketapi.ContractQuery, []marketapi.Contract](coordinator.FamilyContracts, MsgContractsFailed,
		func(ctx context.Context, q marketapi.ContractQuery) ([]marketapi.Contract, error) {
			return backend.ListContracts(ctx, q)
		}, opts.Logger)
	s.comparison = coordinator.NewFamily[[]int, *marketapi.Comparison](coordinator.FamilyComparison, MsgComparisonFailed,
		func(ctx context.Context, ids []int) (*marketapi.Comparison, error) {
			return backend.CompareContracts(ctx, ids)
		}, opts.Logger)
	s.portfolio = coordinator.NewFamily[int, PortfolioSnapshot](coordinator.FamilyPortfolio, MsgPortfolioFailed,
		func(ctx context.Context, userID int) (PortfolioSnapshot, error) {
			return FetchPortfolio(ctx, backend, userID)
		}, opts.Logger)

	return s
}

// FetchPortfolio loads holdings and metrics concurrently. Either failure
// fails the whole snapshot.
func FetchPortfolio(ctx context.Context, backend Backend, userID int) (PortfolioSnapshot, error) {
	var (
		portfolio *marketapi.Portfolio
		metrics   *marketapi.PortfolioMetrics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		portfolio, err = backend.GetPortfolio(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = backend.GetPortfolioMetrics(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return PortfolioSnapshot{}, err
	}
	return PortfolioSnapshot{Holdings: portfolio.Holdings, Metrics: *metrics}, nil
}

func tickAfter(d time.Duration, msg tea.Msg) tea.Cmd {
	if d <= 0 {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

func runTicket[T any](t coordinator.Ticket[T], wrap func(coordinator.Settlement[T]) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return wrap(t.Run())
	}
}

// Init schedules the first contracts load, which fires without delay, and
// loads the portfolio.
func (s *Session) Init() tea.Cmd {
	return tea.Batch(s.scheduleContracts(Change{}), s.LoadPortfolio())
}

// Close cancels every in-flight request and mutation.
func (s *Session) Close() {
	s.contracts.Close()
	s.comparison.Close()
	s.portfolio.Close()
	s.cancel()
}

// Update applies a message produced by one of the session's commands.
// Messages of other types are ignored.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case DebounceMsg:
		return s.fire(msg.Gen)
	case ContractsMsg:
		s.applyContracts(msg.Settlement)
	case ComparisonMsg:
		s.comparison.Settle(msg.Settlement)
	case PortfolioMsg:
		s.applyPortfolio(msg.Settlement)
	case MutationMsg:
		return s.applyMutation(msg)
	}
	return nil
}

// Filters returns the current filters.
func (s *Session) Filters() FilterState {
	return s.filters
}

// Sort returns the current sort order.
func (s *Session) Sort() SortState {
	return s.sort
}

// SetFilters replaces the filters and schedules a debounced reload.
func (s *Session) SetFilters(f FilterState) tea.Cmd {
	if f.Equal(s.filters) {
		return nil
	}
	change := Classify(s.filters, s.sort, f, s.sort)
	s.filters = f
	return s.scheduleContracts(change)
}

// SetSort replaces the sort order and schedules a debounced reload.
func (s *Session) SetSort(next SortState) tea.Cmd {
	if next == s.sort {
		return nil
	}
	change := Classify(s.filters, s.sort, s.filters, next)
	s.sort = next
	return s.scheduleContracts(change)
}

// ResetFilters restores the default filters and clears the sort order.
func (s *Session) ResetFilters() tea.Cmd {
	nf, ns := DefaultFilters(), DefaultSort()
	if nf.Equal(s.filters) && ns == s.sort {
		return nil
	}
	change := Classify(s.filters, s.sort, nf, ns)
	s.filters, s.sort = nf, ns
	return s.scheduleContracts(change)
}

func (s *Session) scheduleContracts(change Change) tea.Cmd {
	// Edits made before the first load fires are part of the first load.
	if !s.trigger.Started() {
		change = Change{}
	}
	s.pending = s.pending.Merge(change)
	p := s.trigger.Schedule()
	return s.schedule(p.Delay, DebounceMsg{Gen: p.Gen})
}

func (s *Session) fire(gen uint64) tea.Cmd {
	if !s.trigger.Fire(gen) {
		return nil
	}
	kind := s.pending
	s.pending = Change{}
	return s.issueContracts(kind)
}

// issueContracts requests the contracts matching the current filters. Filter
// and sort requests keep the previous list visible while they run.
func (s *Session) issueContracts(kind Change) tea.Cmd {
	q := Query(s.filters, s.sort, s.limit)
	s.requestKind = kind

	var t coordinator.Ticket[[]marketapi.Contract]
	if kind.Any() {
		t = s.contracts.IssueKeep(s.ctx, q)
	} else {
		t = s.contracts.Issue(s.ctx, q)
	}
	s.logger.Debug("loading contracts",
		zap.Uint64("seq", t.Seq),
		zap.Bool("filter", kind.Filter),
		zap.Bool("sort", kind.Sort))
	return runTicket(t, func(st coordinator.Settlement[[]marketapi.Contract]) tea.Msg {
		return ContractsMsg{st}
	})
}

// RefreshContracts reloads the contracts immediately with the current filters.
func (s *Session) RefreshContracts() tea.Cmd {
	return s.issueContracts(Change{})
}

// RetryContracts re-issues the last contracts request with identical parameters.
func (s *Session) RetryContracts() tea.Cmd {
	if _, ok := s.contracts.LastParams(); !ok {
		return s.issueContracts(Change{})
	}
	t := s.contracts.Retry(s.ctx)
	s.logger.Debug("retrying contracts", zap.Uint64("seq", t.Seq))
	return runTicket(t, func(st coordinator.Settlement[[]marketapi.Contract]) tea.Msg {
		return ContractsMsg{st}
	})
}

func (s *Session) applyContracts(st coordinator.Settlement[[]marketapi.Contract]) {
	if !s.contracts.Settle(st) {
		return
	}
	s.settledKind = s.requestKind
	if st.Err == nil {
		s.lastUpdated = s.now()
	}
}

// Contracts returns the committed contracts result.
func (s *Session) Contracts() coordinator.Result[[]marketapi.Contract] {
	return s.contracts.Result()
}

// ContractsInFlight reports whether a contracts request is outstanding.
func (s *Session) ContractsInFlight() bool {
	return s.contracts.InFlight()
}

// LastContractsQuery returns the parameters of the last contracts request.
func (s *Session) LastContractsQuery() (marketapi.ContractQuery, bool) {
	return s.contracts.LastParams()
}

// IsFiltering reports whether a filter change is pending or in flight.
func (s *Session) IsFiltering() bool {
	return s.pending.Filter || (s.contracts.InFlight() && s.requestKind.Filter)
}

// IsSorting reports whether a sort change is pending or in flight.
func (s *Session) IsSorting() bool {
	return s.pending.Sort || (s.contracts.InFlight() && s.requestKind.Sort)
}

// FilterFailed reports whether the committed contracts error came from a
// filter or sort change rather than a plain load.
func (s *Session) FilterFailed() bool {
	return s.contracts.Result().HasError() && s.settledKind.Any()
}

// LastUpdated returns when contracts were last loaded successfully.
func (s *Session) LastUpdated() time.Time {
	return s.lastUpdated
}

// ActiveFilterCount returns the number of filter groups narrowing the list.
func (s *Session) ActiveFilterCount() int {
	return s.filters.ActiveCount()
}

// ContractsLabel returns the contracts tab title, with a count once loaded.
func (s *Session) ContractsLabel() string {
	res := s.contracts.Result()
	if !res.HasData() {
		return "Contracts"
	}
	return fmt.Sprintf("Contracts (%d)", len(res.Data))
}

// Selection returns the comparison selection.
func (s *Session) Selection() Selection {
	return s.selection
}

// ToggleCompare adds or removes id from the comparison and reloads it.
// Selecting a fourth contract is ignored.
func (s *Session) ToggleCompare(id int) tea.Cmd {
	if !s.selection.Toggle(id) {
		return nil
	}
	return s.loadComparison()
}

// ClearComparison empties the comparison selection.
func (s *Session) ClearComparison() tea.Cmd {
	if !s.selection.Clear() {
		return nil
	}
	return s.loadComparison()
}

// RetryComparison re-issues the last comparison request.
func (s *Session) RetryComparison() tea.Cmd {
	if !s.selection.Comparable() {
		return nil
	}
	t := s.comparison.Retry(s.ctx)
	return runTicket(t, func(st coordinator.Settlement[*marketapi.Comparison]) tea.Msg {
		return ComparisonMsg{st}
	})
}

// loadComparison issues a comparison for the current selection, or resets
// the comparison to idle when fewer than two contracts are selected.
func (s *Session) loadComparison() tea.Cmd {
	if !s.selection.Comparable() {
		s.comparison.Reset()
		return nil
	}
	t := s.comparison.Issue(s.ctx, s.selection.IDs())
	s.logger.Debug("loading comparison", zap.Uint64("seq", t.Seq), zap.Ints("ids", s.selection.IDs()))
	return runTicket(t, func(st coordinator.Settlement[*marketapi.Comparison]) tea.Msg {
		return ComparisonMsg{st}
	})
}

// Comparison returns the committed comparison result.
func (s *Session) Comparison() coordinator.Result[*marketapi.Comparison] {
	return s.comparison.Result()
}

// LoadPortfolio reloads holdings and metrics.
func (s *Session) LoadPortfolio() tea.Cmd {
	return s.issuePortfolio(false)
}

func (s *Session) issuePortfolio(keep bool) tea.Cmd {
	var t coordinator.Ticket[PortfolioSnapshot]
	if keep {
		t = s.portfolio.IssueKeep(s.ctx, s.userID)
	} else {
		t = s.portfolio.Issue(s.ctx, s.userID)
	}
	return runTicket(t, func(st coordinator.Settlement[PortfolioSnapshot]) tea.Msg {
		return PortfolioMsg{st}
	})
}

func (s *Session) applyPortfolio(st coordinator.Settlement[PortfolioSnapshot]) {
	if !s.portfolio.Settle(st) {
		return
	}
	for id := range s.awaitingReload {
		s.updating.Remove(id)
	}
	s.awaitingReload = IDSet{}

	res := s.portfolio.Result()
	if res.HasData() {
		s.held = HoldingIDs(res.Data.Holdings)
	} else {
		s.held = IDSet{}
	}
}

// RefreshAll reloads contracts and the portfolio.
func (s *Session) RefreshAll() tea.Cmd {
	return tea.Batch(s.RefreshContracts(), s.LoadPortfolio())
}

// AddToPortfolio adds a contract to the portfolio and then reloads it.
// It does nothing when the contract is already held or being updated.
func (s *Session) AddToPortfolio(id int) tea.Cmd {
	if s.held.Has(id) || s.updating.Has(id) {
		return nil
	}
	backend, userID := s.backend, s.userID
	return s.mutate(OpAdd, id, func(ctx context.Context) error {
		_, err := backend.AddContract(ctx, userID, id)
		return err
	})
}

// RemoveFromPortfolio removes a contract from the portfolio and then reloads
// it. It does nothing while the contract is being updated. Removal of a
// contract that is no longer held is left to the backend.
func (s *Session) RemoveFromPortfolio(id int) tea.Cmd {
	if s.updating.Has(id) {
		return nil
	}
	backend, userID := s.backend, s.userID
	return s.mutate(OpRemove, id, func(ctx context.Context) error {
		return backend.RemoveContract(ctx, userID, id)
	})
}

func (s *Session) mutate(op MutationOp, id int, call func(ctx context.Context) error) tea.Cmd {
	s.updating.Add(id)
	s.notice = ""
	s.logger.Debug("portfolio mutation", zap.Stringer("op", op), zap.Int("contract_id", id))
	ctx := s.ctx
	return func() tea.Msg {
		return MutationMsg{Op: op, ContractID: id, Err: call(ctx)}
	}
}

func (s *Session) applyMutation(msg MutationMsg) tea.Cmd {
	if msg.Err != nil {
		s.updating.Remove(msg.ContractID)
		if s.ctx.Err() != nil {
			return nil
		}
		s.notice = marketapi.Message(msg.Err, msg.Op.fallback())
		s.logger.Warn("portfolio mutation failed",
			zap.Stringer("op", msg.Op),
			zap.Int("contract_id", msg.ContractID),
			zap.Error(msg.Err))
		return nil
	}
	// The id stays marked until the reload that reflects the change settles.
	s.awaitingReload.Add(msg.ContractID)
	return s.issuePortfolio(true)
}

// Portfolio returns the committed portfolio result.
func (s *Session) Portfolio() coordinator.Result[PortfolioSnapshot] {
	return s.portfolio.Result()
}

// PortfolioInFlight reports whether a portfolio request is outstanding.
func (s *Session) PortfolioInFlight() bool {
	return s.portfolio.InFlight()
}

// PortfolioLabel returns the portfolio tab title, with a count once loaded.
func (s *Session) PortfolioLabel() string {
	res := s.portfolio.Result()
	if !res.HasData() {
		return "Portfolio"
	}
	return fmt.Sprintf("Portfolio (%d)", len(res.Data.Holdings))
}

// InPortfolio reports whether the contract is held.
func (s *Session) InPortfolio(id int) bool {
	return s.held.Has(id)
}

// IsUpdating reports whether an add or remove is in progress for the contract.
func (s *Session) IsUpdating(id int) bool {
	return s.updating.Has(id)
}

// Updating returns the ids with a mutation in progress.
func (s *Session) Updating() []int {
	return s.updating.Sorted()
}

// Notice returns the message of the last failed portfolio mutation.
func (s *Session) Notice() string {
	return s.notice
}

// DismissNotice clears the mutation failure message.
func (s *Session) DismissNotice() {
	s.notice = ""
}
