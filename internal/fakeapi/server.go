// Package fakeapi runs an in-process chat backend speaking the same HTTP
// and live channel protocol as the real service. Tests use it to exercise
// the REST client, the live channel and the containers end to end.
package fakeapi

import (
	"chatty/domain"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	cookieName     = "jwt"
	tokenLifetime  = 7 * 24 * time.Hour
	defaultPollFor = time.Second
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type account struct {
	user         domain.User
	passwordHash string
}

type failure struct {
	status  int
	message string
}

type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Server is a fake chat backend bound to a test.
type Server struct {
	srv      *httptest.Server
	secret   []byte
	upgrader websocket.Upgrader

	mu             sync.Mutex
	accounts       map[string]*account // by user id
	byEmail        map[string]string
	messages       []domain.Message
	peers          map[string]map[*peer]struct{}
	pollers        map[string]*peer
	failures       map[string]failure
	calls          map[string]int
	websocketAllow bool
}

func New(t testing.TB) *Server {
	s := &Server{
		secret:         []byte(uuid.NewString()),
		accounts:       make(map[string]*account),
		byEmail:        make(map[string]string),
		peers:          make(map[string]map[*peer]struct{}),
		pollers:        make(map[string]*peer),
		failures:       make(map[string]failure),
		calls:          make(map[string]int),
		websocketAllow: true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", s.signup)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/logout", s.logout)
	mux.HandleFunc("GET /api/auth/check", s.authenticated(s.check))
	mux.HandleFunc("PUT /api/auth/update-profile", s.authenticated(s.updateProfile))
	mux.HandleFunc("GET /api/messages/users", s.authenticated(s.users))
	mux.HandleFunc("GET /api/messages/{id}", s.authenticated(s.history))
	mux.HandleFunc("POST /api/messages/send/{id}", s.authenticated(s.send))
	mux.HandleFunc("GET /socket", s.websocket)
	mux.HandleFunc("GET /socket/poll", s.poll)
	mux.HandleFunc("DELETE /socket/poll", s.leavePoll)

	s.srv = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) URL() string       { return s.srv.URL }
func (s *Server) APIURL() string    { return s.srv.URL + "/api" }
func (s *Server) SocketURL() string { return s.srv.URL }

func (s *Server) Close() {
	s.mu.Lock()
	var all []*peer
	for _, set := range s.peers {
		for p := range set {
			all = append(all, p)
		}
	}
	s.mu.Unlock()
	for _, p := range all {
		p.close()
	}
	s.srv.Close()
}

// Seed registers an account without going through the API.
func (s *Server) Seed(fullName, email, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(fullName, email, password)
}

// Fail makes the next request on method and path answer status with message.
func (s *Server) Fail(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// Calls counts the requests received on method and path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// DisableWebsocket refuses websocket upgrades so clients fall back to polling.
func (s *Server) DisableWebsocket() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.websocketAllow = false
}

// Online lists the users holding at least one live connection.
func (s *Server) Online() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onlineLocked()
}

// Deliver stores a message from one user to another and pushes it to the
// recipient, as if the sender had posted it.
func (s *Server) Deliver(from, to, text string) domain.Message {
	s.mu.Lock()
	msg := s.storeLocked(from, to, domain.MessagePayload{Text: text})
	targets := s.peersLocked(to)
	s.mu.Unlock()
	emit(targets, envelope{Event: "newMessage", Data: msg})
	return msg
}

// Emit pushes an arbitrary event to every connection of userID.
func (s *Server) Emit(userID, event string, data any) {
	s.mu.Lock()
	targets := s.peersLocked(userID)
	s.mu.Unlock()
	emit(targets, envelope{Event: event, Data: data})
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[key]++
		f, failing := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if failing {
			if f.message == "" {
				w.WriteHeader(f.status)
				return
			}
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, *account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, msg := s.accountFromCookie(r)
		if acc == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": msg})
			return
		}
		next(w, r, acc)
	}
}

func (s *Server) accountFromCookie(r *http.Request) (*account, string) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil, "Unauthorized - No Token Provided"
	}
	var c claims
	_, err = jwt.ParseWithClaims(cookie.Value, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, "Unauthorized - Invalid Token"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[c.UserID]
	if !ok {
		return nil, "User not found"
	}
	return acc, ""
}

func (s *Server) issueCookie(w http.ResponseWriter, userID string) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(tokenLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "All fields are required"})
		return
	}
	if len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Password must be at least 6 characters"})
		return
	}
	s.mu.Lock()
	if _, taken := s.byEmail[req.Email]; taken {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Email already exists"})
		return
	}
	user := s.createLocked(req.FullName, req.Email, req.Password)
	s.mu.Unlock()

	s.issueCookie(w, user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	s.mu.Lock()
	id, ok := s.byEmail[req.Email]
	acc := s.accounts[id]
	s.mu.Unlock()
	if !ok || !comparePassword(req.Password, acc.passwordHash) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
		return
	}
	s.issueCookie(w, acc.user.ID)
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) check(w http.ResponseWriter, _ *http.Request, acc *account) {
	s.mu.Lock()
	user := acc.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, acc *account) {
	var req domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProfilePic == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Profile pic is required"})
		return
	}
	s.mu.Lock()
	acc.user.ProfilePic = req.ProfilePic
	user := acc.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) users(w http.ResponseWriter, _ *http.Request, acc *account) {
	s.mu.Lock()
	users := make([]domain.User, 0, len(s.accounts))
	for id, other := range s.accounts {
		if id != acc.user.ID {
			users = append(users, other.user)
		}
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request, acc *account) {
	other := r.PathValue("id")
	me := acc.user.ID
	s.mu.Lock()
	conversation := lo.Filter(s.messages, func(m domain.Message, _ int) bool {
		return (m.SenderID == me && m.RecipientID == other) || (m.SenderID == other && m.RecipientID == me)
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, conversation)
}

func (s *Server) send(w http.ResponseWriter, r *http.Request, acc *account) {
	var payload domain.MessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	to := r.PathValue("id")
	s.mu.Lock()
	if _, ok := s.accounts[to]; !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	msg := s.storeLocked(acc.user.ID, to, payload)
	targets := s.peersLocked(to)
	s.mu.Unlock()

	emit(targets, envelope{Event: "newMessage", Data: msg})
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) createLocked(fullName, email, password string) domain.User {
	user := domain.User{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[user.ID] = &account{user: user, passwordHash: hashPassword(password)}
	s.byEmail[email] = user.ID
	return user
}

func (s *Server) storeLocked(from, to string, payload domain.MessagePayload) domain.Message {
	msg := domain.Message{
		ID:          uuid.NewString(),
		SenderID:    from,
		RecipientID: to,
		Text:        payload.Text,
		Image:       payload.Image,
		CreatedAt:   time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Server) onlineLocked() []string {
	online := lo.Keys(s.peers)
	sort.Strings(online)
	return online
}

func (s *Server) peersLocked(userID string) []*peer {
	return lo.Keys(s.peers[userID])
}

func (s *Server) allPeersLocked() []*peer {
	var all []*peer
	for _, set := range s.peers {
		all = append(all, lo.Keys(set)...)
	}
	return all
}

func (s *Server) register(userID string, p *peer) {
	s.mu.Lock()
	if _, ok := s.peers[userID]; !ok {
		s.peers[userID] = make(map[*peer]struct{})
	}
	s.peers[userID][p] = struct{}{}
	online := s.onlineLocked()
	targets := s.allPeersLocked()
	s.mu.Unlock()
	emit(targets, envelope{Event: "getOnlineUsers", Data: online})
}

func (s *Server) unregister(userID string, p *peer) {
	s.mu.Lock()
	if set, ok := s.peers[userID]; ok {
		delete(set, p)
		if len(set) == 0 {
			delete(s.peers, userID)
		}
	}
	if s.pollers[userID] == p {
		delete(s.pollers, userID)
	}
	online := s.onlineLocked()
	targets := s.allPeersLocked()
	s.mu.Unlock()
	p.close()
	emit(targets, envelope{Event: "getOnlineUsers", Data: online})
}

// socketUser checks that the cookie owner is the user named in the query.
func (s *Server) socketUser(r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("userId")
	acc, _ := s.accountFromCookie(r)
	if acc == nil || userID == "" || acc.user.ID != userID {
		return "", false
	}
	return userID, true
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	allowed := s.websocketAllow
	s.mu.Unlock()
	if !allowed {
		http.Error(w, "websocket transport disabled", http.StatusBadRequest)
		return
	}
	userID, ok := s.socketUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := newSocketPeer(conn)
	s.register(userID, p)
	defer s.unregister(userID, p)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) poll(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.socketUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	wait := defaultPollFor
	if raw := r.URL.Query().Get("wait"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			wait = d
		}
	}

	s.mu.Lock()
	p, known := s.pollers[userID]
	if !known {
		p = newPollPeer()
		s.pollers[userID] = p
	}
	s.mu.Unlock()
	if !known {
		s.register(userID, p)
	}

	writeJSON(w, http.StatusOK, p.drain(r.Context(), wait))
}

func (s *Server) leavePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.socketUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	p, known := s.pollers[userID]
	s.mu.Unlock()
	if known {
		s.unregister(userID, p)
	}
	w.WriteHeader(http.StatusNoContent)
}

func emit(targets []*peer, env envelope) {
	for _, p := range targets {
		p.send(env)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
