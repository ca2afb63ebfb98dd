package game

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"amadeus/internal/wire"
)

// Controller is the RoomController (C4): a single-writer actor that
// owns all mutable room state, drives the phase state machine, and
// broadcasts status. Every field below that isn't atomic is touched
// only from the run loop goroutine.
type Controller struct {
	id        string
	lib       SongLibrary
	sessions  SessionDirectory
	timers    TimerService
	log       zerolog.Logger
	createdAt time.Time

	joinCh   chan incomingConnection
	closeCh  chan closedConnection
	cmdCh    chan sessionCommand
	loadedCh chan quizLoaded
	timerCh  chan timerFired
	configCh chan configRequest
	doneCh   chan struct{}

	config atomic.Pointer[RoomConfiguration]
	status atomic.Pointer[RoomStatus]

	// --- single-writer state below; never touched off the run loop ---

	phase Phase
	round int
	quiz  Quiz

	hostID         string
	playerInfo     map[string]PlayerInfo
	joinOrder      []string
	committedOrder []string
	committed      map[string]struct{}
	connected      map[string]Link

	bufferStatus map[string]map[int]struct{}
	scores       map[string]int
	guesses      map[string]string
	correct      map[string]struct{}

	roundStart  time.Time
	roundTimer  CancelHandle
	reviewTimer CancelHandle
}

type incomingConnection struct {
	session string
	link    Link
	reply   chan *CloseReason
}

type closedConnection struct {
	session string
	link    Link
}

type sessionCommand struct {
	session string
	cmd     wire.ClientCommand
}

type quizLoaded struct {
	quiz Quiz
	err  error
}

type timerKind int

const (
	timerRoundTimeout timerKind = iota
	timerReviewTimeout
)

type timerFired struct {
	kind  timerKind
	round int
}

type configRequest struct {
	cfg   RoomConfiguration
	reply chan error
}

// NewController constructs a Controller in Lobby. Run must be called
// (typically in its own goroutine) to drive the phase machine.
func NewController(id string, cfg RoomConfiguration, lib SongLibrary, sessions SessionDirectory, timers TimerService, log zerolog.Logger) *Controller {
	c := &Controller{
		id:        id,
		lib:       lib,
		sessions:  sessions,
		timers:    timers,
		log:       log.With().Str("room", id).Logger(),
		createdAt: time.Now(),

		joinCh:   make(chan incomingConnection, 32),
		closeCh:  make(chan closedConnection, 32),
		cmdCh:    make(chan sessionCommand, 256),
		loadedCh: make(chan quizLoaded, 1),
		timerCh:  make(chan timerFired, 4),
		configCh: make(chan configRequest, 8),
		doneCh:   make(chan struct{}),

		phase:          PhaseLobby,
		playerInfo:     make(map[string]PlayerInfo),
		committed:      make(map[string]struct{}),
		connected:      make(map[string]Link),
		bufferStatus:   make(map[string]map[int]struct{}),
		scores:         make(map[string]int),
		guesses:        make(map[string]string),
		correct:        make(map[string]struct{}),
		joinOrder:      nil,
		committedOrder: nil,
	}
	c.config.Store(&cfg)
	c.publishStatus()
	return c
}

// ID returns the room id.
func (c *Controller) ID() string { return c.id }

// Config reads the room's configuration without synchronizing with the
// run loop (spec.md §4.4's "volatile config").
func (c *Controller) Config() RoomConfiguration { return *c.config.Load() }

// Status reads the last published snapshot of room status (spec.md
// §4.4's "volatile status").
func (c *Controller) Status() RoomStatus { return *c.status.Load() }

// Done is closed once the controller has terminated (reached Finished
// and every link has closed).
func (c *Controller) Done() <-chan struct{} { return c.doneCh }

// CreatedAt is used by the registry's read-only listing.
func (c *Controller) CreatedAt() time.Time { return c.createdAt }

// Summary is the read model RoomRegistry exposes for listings; it never
// blocks on the controller (spec.md §4.3).
type Summary struct {
	ID             string
	ConnectedCount int
	MaxPlayers     int
	Phase          Phase
	PhaseTag       string
	CreatedAt      time.Time
}

func (c *Controller) Summary() Summary {
	status := c.Status()
	cfg := c.Config()
	return Summary{
		ID:             c.id,
		ConnectedCount: len(status.Players),
		MaxPlayers:     cfg.MaxPlayers,
		Phase:          status.Phase,
		PhaseTag:       status.Phase.wireTag(),
		CreatedAt:      c.createdAt,
	}
}

// --- external API: post a message, never touch state directly ---

// Join submits a newly upgraded link to the controller and blocks until
// it has been admitted or rejected. A non-nil CloseReason means the
// link was rejected and the caller must close it with that reason.
func (c *Controller) Join(ctx context.Context, session string, link Link) *CloseReason {
	reply := make(chan *CloseReason, 1)
	msg := incomingConnection{session: session, link: link, reply: reply}
	select {
	case c.joinCh <- msg:
	case <-ctx.Done():
		reason := CloseGoingAway
		return &reason
	}
	select {
	case reason := <-reply:
		return reason
	case <-ctx.Done():
		reason := CloseGoingAway
		return &reason
	}
}

// Closed notifies the controller that link is no longer usable for
// session. It deduplicates against replacement joins: only the current
// link for that session is removed.
func (c *Controller) Closed(session string, link Link) {
	select {
	case c.closeCh <- closedConnection{session: session, link: link}:
	default:
		go func() { c.closeCh <- closedConnection{session: session, link: link} }()
	}
}

// Dispatch forwards a decoded client command into the mailbox.
func (c *Controller) Dispatch(session string, cmd wire.ClientCommand) {
	select {
	case c.cmdCh <- sessionCommand{session: session, cmd: cmd}:
	default:
		go func() { c.cmdCh <- sessionCommand{session: session, cmd: cmd} }()
	}
}

// UpdateConfig edits the room's configuration. It only succeeds while
// the room is in Lobby (spec.md §3).
func (c *Controller) UpdateConfig(ctx context.Context, cfg RoomConfiguration) error {
	reply := make(chan error, 1)
	select {
	case c.configCh <- configRequest{cfg: cfg, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the phase machine until the room terminates. It is the
// only goroutine that ever mutates Controller's private state.
func (c *Controller) Run() {
	defer close(c.doneCh)
	for {
		select {
		case msg := <-c.joinCh:
			c.handleJoin(msg)
			if c.maybeTerminate() {
				return
			}
		case msg := <-c.closeCh:
			c.handleClosed(msg)
			if c.maybeTerminate() {
				return
			}
		case msg := <-c.cmdCh:
			c.handleCommand(msg)
		case msg := <-c.loadedCh:
			c.handleLoadingComplete(msg)
			if c.maybeTerminate() {
				return
			}
		case msg := <-c.timerCh:
			c.handleTimerFired(msg)
			if c.maybeTerminate() {
				return
			}
		case msg := <-c.configCh:
			msg.reply <- c.handleUpdateConfig(msg.cfg)
		}
	}
}

func (c *Controller) maybeTerminate() bool {
	if c.phase != PhaseFinished {
		return false
	}
	if len(c.connected) > 0 {
		return false
	}
	c.cancelTimers()
	return true
}

func (c *Controller) cancelTimers() {
	if c.roundTimer != nil {
		c.roundTimer.Cancel()
		c.roundTimer = nil
	}
	if c.reviewTimer != nil {
		c.reviewTimer.Cancel()
		c.reviewTimer = nil
	}
}

// --- admission (spec.md §4.4.3) ---

func (c *Controller) handleJoin(msg incomingConnection) {
	session := msg.session

	if existing, ok := c.connected[session]; ok {
		existing.Close(CloseGoingAway)
		c.connected[session] = msg.link
		msg.reply <- nil
		c.sendWelcome(session, msg.link)
		c.broadcastExcept(session)
		return
	}

	switch c.phase {
	case PhaseLobby:
		if len(c.connected) >= c.Config().MaxPlayers {
			c.log.Info().Str("session", session).Msg("admission refused: room full")
			reason := CloseCannotAccept
			msg.reply <- &reason
			return
		}
		if _, known := c.playerInfo[session]; !known {
			info := PlayerInfo{
				ID:   session,
				Name: DisplayName(c.sessions, session),
				Host: c.hostID == "",
			}
			if info.Host {
				c.hostID = session
			}
			c.playerInfo[session] = info
			c.joinOrder = append(c.joinOrder, session)
		}
		c.connected[session] = msg.link
		msg.reply <- nil
		c.sendWelcome(session, msg.link)
		c.broadcastExcept(session)

	default:
		if _, ok := c.committed[session]; !ok {
			c.log.Info().Str("session", session).Msg("admission refused: not a committed player")
			reason := CloseCannotAccept
			msg.reply <- &reason
			return
		}
		c.connected[session] = msg.link
		msg.reply <- nil
		c.sendWelcome(session, msg.link)
		c.resendAudioOnRejoin(session, msg.link)
		c.broadcastExcept(session)
	}
}

func (c *Controller) sendWelcome(session string, link Link) {
	c.sendOrClose(session, link, wire.RoomConfigCommand{Config: c.Config().toWire()})
	c.sendOrClose(session, link, wire.RoomStateCommand{State: c.currentStatus().ToWire()})
}

// sendOrClose sends cmd to link and, on failure (including the outbound
// buffer overflowing per spec.md §5), closes the link and self-reports
// it through Closed rather than letting the controller's single
// goroutine ever block on a slow or stuck client.
func (c *Controller) sendOrClose(session string, link Link, cmd wire.ServerCommand) {
	if err := link.Send(cmd); err != nil {
		c.log.Warn().Str("session", session).Err(err).Msg("send failed; closing link")
		link.Close(CloseGoingAway)
		c.Closed(session, link)
	}
}

func (c *Controller) resendAudioOnRejoin(session string, link Link) {
	switch c.phase {
	case PhaseBuffering, PhasePlaying, PhaseReviewing:
		c.streamRoundTo(c.round, []Link{link})
		if c.phase == PhasePlaying && c.round+1 < len(c.quiz.Questions) {
			c.streamRoundTo(c.round+1, []Link{link})
		}
	}
}

func (c *Controller) handleClosed(msg closedConnection) {
	current, ok := c.connected[msg.session]
	if !ok || current != msg.link {
		return
	}
	delete(c.connected, msg.session)
	c.broadcastAll()
}

// --- client commands (spec.md §4.4.1, §7.4) ---

func (c *Controller) handleCommand(msg sessionCommand) {
	switch cmd := msg.cmd.(type) {
	case wire.StartCommand:
		c.handleStart(msg.session)
	case wire.NextCommand:
		c.handleNext(msg.session)
	case wire.BufferCompleteCommand:
		c.handleBufferComplete(msg.session, cmd.Round)
	case wire.GuessCommand:
		c.handleGuess(msg.session, cmd.Round, cmd.Guess)
	}
}

func (c *Controller) isHost(session string) bool { return session != "" && session == c.hostID }

func (c *Controller) handleStart(session string) {
	if c.phase != PhaseLobby || !c.isHost(session) {
		return
	}
	c.committed = make(map[string]struct{}, len(c.connected))
	c.committedOrder = nil
	for _, id := range c.joinOrder {
		if _, ok := c.connected[id]; ok {
			c.committed[id] = struct{}{}
			c.committedOrder = append(c.committedOrder, id)
		}
	}
	c.phase = PhaseLoading
	c.broadcastAll()
	c.loadQuizAsync()
}

func (c *Controller) loadQuizAsync() {
	rounds := c.Config().Rounds
	go func(lib SongLibrary, roomID string, rounds int, ch chan quizLoaded) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		quiz, err := lib.LoadQuiz(ctx, roomID, rounds)
		ch <- quizLoaded{quiz: quiz, err: err}
	}(c.lib, c.id, rounds, c.loadedCh)
}

func (c *Controller) handleLoadingComplete(msg quizLoaded) {
	if c.phase != PhaseLoading {
		return
	}
	if msg.err != nil {
		c.log.Error().Err(msg.err).Msg("quiz load failed; finishing room with empty scores")
		c.scores = make(map[string]int)
		c.phase = PhaseFinished
		c.broadcastAll()
		return
	}
	c.quiz = msg.quiz
	c.enterBuffering(0)
}

func (c *Controller) handleNext(session string) {
	if !c.isHost(session) {
		return
	}
	switch c.phase {
	case PhaseBuffering:
		c.enterPlaying(c.round)
	case PhasePlaying:
		c.enterReviewing(c.round)
	case PhaseReviewing:
		c.advanceFromReview()
	}
}

func (c *Controller) handleBufferComplete(session string, round int) {
	if c.phase != PhaseBuffering || round != c.round {
		return
	}
	if _, ok := c.committed[session]; !ok {
		return
	}
	if c.bufferStatus[session] == nil {
		c.bufferStatus[session] = make(map[int]struct{})
	}
	c.bufferStatus[session][round] = struct{}{}
	c.broadcastAll()
	if c.allBuffered(round) {
		c.enterPlaying(round)
	}
}

func (c *Controller) allBuffered(round int) bool {
	for session := range c.committed {
		if _, connected := c.connected[session]; !connected {
			continue
		}
		if _, done := c.bufferStatus[session][round]; !done {
			return false
		}
	}
	return true
}

func (c *Controller) handleGuess(session string, round int, text string) {
	if c.phase != PhasePlaying || round != c.round {
		return
	}
	if _, ok := c.committed[session]; !ok {
		return
	}
	c.guesses[session] = text
	c.broadcastAll()
}

func (c *Controller) handleTimerFired(msg timerFired) {
	switch msg.kind {
	case timerRoundTimeout:
		if c.phase != PhasePlaying || msg.round != c.round {
			return
		}
		c.enterReviewing(c.round)
	case timerReviewTimeout:
		if c.phase != PhaseReviewing || msg.round != c.round {
			return
		}
		c.advanceFromReview()
	}
}

func (c *Controller) handleUpdateConfig(cfg RoomConfiguration) error {
	if c.phase != PhaseLobby {
		return ErrNotAcceptingJoins
	}
	c.config.Store(&cfg)
	for session, link := range c.connected {
		c.sendOrClose(session, link, wire.RoomConfigCommand{Config: cfg.toWire()})
	}
	c.broadcastAll()
	return nil
}

// --- phase transitions (spec.md §4.4.2) ---

func (c *Controller) enterBuffering(round int) {
	c.round = round
	c.phase = PhaseBuffering
	c.guesses = make(map[string]string)
	c.correct = make(map[string]struct{})
	c.broadcastAll()
	c.streamRoundToAll(round)
}

func (c *Controller) enterPlaying(round int) {
	c.cancelTimers()
	c.phase = PhasePlaying
	c.round = round
	c.roundStart = time.Now()
	c.broadcastAll()

	cfg := c.Config()
	deadline := cfg.PlayTime + cfg.GuessTime
	c.roundTimer = c.timers.Schedule(deadline, func() {
		c.timerCh <- timerFired{kind: timerRoundTimeout, round: round}
	})

	if round+1 < len(c.quiz.Questions) {
		c.streamRoundToAll(round + 1)
	}
}

func (c *Controller) enterReviewing(round int) {
	c.cancelTimers()
	c.phase = PhaseReviewing
	c.scoreRound(round)
	c.broadcastAll()

	reviewTime := c.Config().ReviewTime
	c.reviewTimer = c.timers.Schedule(reviewTime, func() {
		c.timerCh <- timerFired{kind: timerReviewTimeout, round: round}
	})
}

func (c *Controller) advanceFromReview() {
	c.cancelTimers()
	next := c.round + 1
	for session, statuses := range c.bufferStatus {
		pruned := make(map[int]struct{}, len(statuses))
		for r := range statuses {
			if r >= next {
				pruned[r] = struct{}{}
			}
		}
		c.bufferStatus[session] = pruned
	}
	if next < len(c.quiz.Questions) {
		c.enterBuffering(next)
		return
	}
	c.phase = PhaseFinished
	c.broadcastAll()
}

func (c *Controller) scoreRound(round int) {
	if round < 0 || round >= len(c.quiz.Questions) {
		return
	}
	solution := c.quiz.Questions[round].Solution
	for session, guess := range c.guesses {
		if closeMatch(guess, solution) {
			c.correct[session] = struct{}{}
			c.scores[session]++
		}
	}
}

func closeMatch(guess, solution string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(solution))
}

// --- audio streaming (spec.md §4.4.4) ---

func (c *Controller) streamRoundToAll(round int) {
	targets := make([]Link, 0, len(c.connected))
	for _, link := range c.connected {
		targets = append(targets, link)
	}
	c.streamRoundTo(round, targets)
}

func (c *Controller) streamRoundTo(round int, targets []Link) {
	if round < 0 || round >= len(c.quiz.Questions) || len(targets) == 0 {
		return
	}
	handle := c.quiz.Questions[round].Audio
	lib := c.lib
	log := c.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		data, err := lib.AudioFor(ctx, handle)
		if err != nil {
			log.Error().Err(err).Int("round", round).Msg("failed to load audio for round")
			return
		}
		for _, link := range targets {
			if err := link.SendAudio(round, data); err != nil {
				log.Warn().Err(err).Int("round", round).Msg("audio send failed; closing link")
				link.Close(CloseProtocolError)
			}
		}
	}()
}

// --- broadcasting ---

func (c *Controller) currentStatus() RoomStatus {
	var players []PlayerInfo
	switch c.phase {
	case PhaseLobby:
		for _, id := range c.joinOrder {
			if _, ok := c.connected[id]; ok {
				players = append(players, c.playerInfo[id])
			}
		}
	default:
		for _, id := range c.committedOrder {
			players = append(players, c.playerInfo[id])
		}
	}

	status := RoomStatus{
		Phase:      c.phase,
		Players:    players,
		Round:      c.round,
		RoundStart: c.roundStart,
		Scores:     copyIntMap(c.scores),
	}
	inRange := c.round >= 0 && c.round < len(c.quiz.Questions)
	switch c.phase {
	case PhaseBuffering:
		status.Ready = sessionsWithRound(c.bufferStatus, c.round)
	case PhasePlaying:
		if inRange {
			status.Prompt = c.quiz.Questions[c.round].Prompt
		}
		status.Guessed = guessedSet(c.guesses)
	case PhaseReviewing:
		if inRange {
			status.Prompt = c.quiz.Questions[c.round].Prompt
			status.Solution = c.quiz.Questions[c.round].Solution
		}
		status.Guesses = copyStringMap(c.guesses)
		status.Correct = copySet(c.correct)
	}
	return status
}

func (c *Controller) publishStatus() {
	status := c.currentStatus()
	c.status.Store(&status)
}

func (c *Controller) broadcastAll() {
	c.publishStatus()
	status := c.Status()
	for session, link := range c.connected {
		c.sendOrClose(session, link, wire.RoomStateCommand{State: status.ToWire()})
	}
}

func (c *Controller) broadcastExcept(except string) {
	c.publishStatus()
	status := c.Status()
	for session, link := range c.connected {
		if session == except {
			continue
		}
		c.sendOrClose(session, link, wire.RoomStateCommand{State: status.ToWire()})
	}
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySet(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func guessedSet(guesses map[string]string) map[string]struct{} {
	out := make(map[string]struct{}, len(guesses))
	for k := range guesses {
		out[k] = struct{}{}
	}
	return out
}

func sessionsWithRound(bufferStatus map[string]map[int]struct{}, round int) map[string]struct{} {
	out := make(map[string]struct{})
	for session, rounds := range bufferStatus {
		if _, ok := rounds[round]; ok {
			out[session] = struct{}{}
		}
	}
	return out
}
