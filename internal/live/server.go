package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Frojdholm/reversi-tournament/internal/domain"
	"github.com/Frojdholm/reversi-tournament/internal/match"
	"github.com/Frojdholm/reversi-tournament/internal/obslog"
	"github.com/Frojdholm/reversi-tournament/internal/render"
	"github.com/Frojdholm/reversi-tournament/internal/reversi"
	"github.com/Frojdholm/reversi-tournament/pkg/matchdto"
)

// Server is the spectator surface. It reads through the match store,
// keeps the most recently moved board for /board.png, and doubles as a
// tournament observer feeding the websocket hub. With concurrent games
// the board tracks whichever game moved last.
type Server struct {
	r        *chi.Mux
	store    match.Store
	hub      *Hub
	renderer render.BoardRenderer

	mu             sync.Mutex
	tournamentID   string
	tournamentName string
	boardGameID    string
	board          reversi.Board
	lastMove       *reversi.Move
	header         string
	status         string
	png            []byte
}

// NewServer wires routes and middleware. renderer may be nil, which
// turns /board.png into a 404.
func NewServer(store match.Store, renderer render.BoardRenderer) *Server {
	s := &Server{r: chi.NewRouter(), store: store, hub: NewHub(), renderer: renderer}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	// The websocket stays outside this group: the request timeout would
	// cut long-lived spectator connections.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/standings", s.handleStandings)
		r.Get("/games/{id}", s.handleGame)
		r.Get("/board.png", s.handleBoard)
	})
	s.r.Get("/ws", s.hub.ServeWS)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, matchdto.DomainError{Code: "not_found", Message: r.URL.Path})
	})
	return s
}

// Router exposes the internal router, useful for tests.
func (s *Server) Router() chi.Router { return s.r }

// Hub exposes the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Serve runs the HTTP server until ctx is done, then drains for a
// short grace period.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	obslog.L().Info("live_listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// ---------------------------- handlers ----------------------------

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	id, name := s.tournamentID, s.tournamentName
	s.mu.Unlock()
	if id == "" {
		writeJSON(w, http.StatusNotFound, matchdto.DomainError{Code: "no_tournament", Message: "no tournament running"})
		return
	}
	standings, err := s.store.Standings(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, matchdto.DomainError{Code: "store_error", Message: err.Error(), Retryable: true})
		return
	}
	if standings == nil {
		standings = &domain.Standings{TournamentID: id, UpdatedAt: time.Now()}
	}
	writeJSON(w, http.StatusOK, snapshotFrom(standings, name))
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := s.store.Game(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, matchdto.DomainError{Code: "store_error", Message: err.Error(), Retryable: true})
		return
	}
	if g == nil {
		writeJSON(w, http.StatusNotFound, matchdto.DomainError{Code: "unknown_game", Message: id})
		return
	}
	writeJSON(w, http.StatusOK, summaryFrom(g))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		writeJSON(w, http.StatusNotFound, matchdto.DomainError{Code: "no_renderer", Message: "board rendering disabled"})
		return
	}
	s.mu.Lock()
	gameID := s.boardGameID
	png := s.png
	board := s.board
	lastMove := s.lastMove
	opts := render.Options{LastMove: lastMove, Header: s.header, Status: s.status}
	s.mu.Unlock()
	if gameID == "" {
		writeJSON(w, http.StatusNotFound, matchdto.DomainError{Code: "no_board", Message: "no game has started"})
		return
	}

	if png == nil {
		rendered, err := s.renderer.RenderPNG(r.Context(), board, opts)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, matchdto.DomainError{Code: "render_failed", Message: err.Error(), Retryable: true})
			return
		}
		s.mu.Lock()
		if s.boardGameID == gameID && s.png == nil {
			s.png = rendered
		}
		s.mu.Unlock()
		png = rendered
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ---------------------------- observer ----------------------------

func (s *Server) TournamentStarted(_ context.Context, t *domain.Tournament) {
	s.mu.Lock()
	s.tournamentID = t.ID
	s.tournamentName = t.Name
	s.boardGameID = ""
	s.png = nil
	s.mu.Unlock()
}

func (s *Server) GameStarted(_ context.Context, g *domain.Game) {
	s.mu.Lock()
	s.boardGameID = g.ID
	s.board = reversi.StartPosition().Board()
	s.lastMove = nil
	s.header = fmt.Sprintf("%s vs %s", g.Black, g.White)
	s.status = fmt.Sprintf("round %d", g.Round)
	s.png = nil
	s.mu.Unlock()
	s.publish(matchdto.EventGameStarted, summaryFrom(g))
}

func (s *Server) MovePlayed(_ context.Context, gameID string, m reversi.Move, thinkTime time.Duration, pos *reversi.Position) {
	board := pos.Board()
	s.mu.Lock()
	s.boardGameID = gameID
	s.board = board
	s.lastMove = &m
	s.status = fmt.Sprintf("last %s (%s)", m, thinkTime.Round(time.Millisecond))
	s.png = nil
	s.mu.Unlock()
	s.publish(matchdto.EventMovePlayed, matchdto.MoveEvent{
		GameID:     gameID,
		Move:       m.String(),
		ThinkMS:    thinkTime.Milliseconds(),
		BlackDiscs: board.Count(reversi.Black),
		WhiteDiscs: board.Count(reversi.White),
	})
}

func (s *Server) GameFinished(ctx context.Context, g *domain.Game) {
	s.mu.Lock()
	if s.boardGameID == g.ID {
		s.status = resultStatus(g)
		s.png = nil
	}
	id, name := s.tournamentID, s.tournamentName
	s.mu.Unlock()
	s.publish(matchdto.EventGameFinished, summaryFrom(g))

	if id == "" {
		return
	}
	standings, err := s.store.Standings(ctx, id)
	if err != nil || standings == nil {
		return
	}
	s.publish(matchdto.EventStandings, snapshotFrom(standings, name))
}

func (s *Server) TournamentFinished(_ context.Context, t *domain.Tournament, standings *domain.Standings) {
	s.publish(matchdto.EventStandings, snapshotFrom(standings, t.Name))
}

func (s *Server) publish(t string, payload any) {
	env, err := matchdto.NewEnvelope(t, payload)
	if err != nil {
		obslog.L().Warn("broadcast_encode_failed", zap.String("event", t), zap.Error(err))
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		obslog.L().Warn("broadcast_encode_failed", zap.String("event", t), zap.Error(err))
		return
	}
	s.hub.Broadcast(frame)
}

// ---------------------------- helpers ----------------------------

func resultStatus(g *domain.Game) string {
	if g.Draw() {
		return fmt.Sprintf("drawn %d-%d", g.BlackDiscs, g.WhiteDiscs)
	}
	return fmt.Sprintf("%s wins %d-%d", g.Winner, g.BlackDiscs, g.WhiteDiscs)
}

func summaryFrom(g *domain.Game) matchdto.GameSummary {
	out := matchdto.GameSummary{
		ID:           g.ID,
		TournamentID: g.TournamentID,
		Round:        g.Round,
		Black:        g.Black,
		White:        g.White,
		Moves:        append([]string(nil), g.Moves...),
		Winner:       g.Winner,
		Reason:       string(g.Reason),
		BlackDiscs:   g.BlackDiscs,
		WhiteDiscs:   g.WhiteDiscs,
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
	}
	for _, d := range g.MoveTimes {
		out.ThinkMS = append(out.ThinkMS, d.Milliseconds())
	}
	return out
}

func snapshotFrom(s *domain.Standings, name string) matchdto.StandingsSnapshot {
	out := matchdto.StandingsSnapshot{
		TournamentID: s.TournamentID,
		Name:         name,
		Scores:       make([]matchdto.ScoreRow, 0, len(s.Scores)),
		UpdatedAt:    s.UpdatedAt,
	}
	for _, sc := range s.Scores {
		out.Scores = append(out.Scores, matchdto.ScoreRow{
			Engine: sc.Engine,
			Wins:   sc.Wins,
			Losses: sc.Losses,
			Draws:  sc.Draws,
			Points: sc.Points(),
		})
	}
	return out
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
