package apitest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var defaultDailyTimes = []string{"09:00", "13:00", "18:00", "22:00"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func now() apiclient.Timestamp {
	return apiclient.Timestamp(time.Now().UTC().Format(http.TimeFormat))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, apiclient.Health{Status: "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		writeMessage(w, http.StatusBadRequest, "username and password required")
		return
	}

	s.mu.Lock()
	want, ok := s.users[username]
	s.mu.Unlock()
	if !ok || want != body.Password {
		writeMessage(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, apiclient.LoginResult{
		Token:    s.IssueToken(username),
		Username: username,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  claims.UserID,
		"username": claims.Username,
	})
}

func paging(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func pageBounds(total, page, size int) (int, int) {
	lo := (page - 1) * size
	if lo > total {
		lo = total
	}
	hi := lo + size
	if hi > total {
		hi = total
	}
	return lo, hi
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mpName := q.Get("mp_name")
	text := q.Get("q")

	s.mu.Lock()
	var matched []apiclient.Article
	for _, a := range s.articles {
		if mpName != "" && a.MPName != mpName {
			continue
		}
		if text != "" && !containsFold(a.Title, text) {
			continue
		}
		matched = append(matched, a)
	}
	s.mu.Unlock()

	page, size := paging(r)
	lo, hi := pageBounds(len(matched), page, size)
	writeJSON(w, http.StatusOK, apiclient.ArticlePage{
		Total: len(matched),
		Items: append([]apiclient.Article{}, matched[lo:hi]...),
	})
}

func (s *Server) findTarget(id string) int {
	for i, t := range s.targets {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("q"))

	s.mu.Lock()
	out := []apiclient.Target{}
	for _, t := range s.targets {
		if text == "" || containsFold(t.Name, text) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findTarget(chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "target not found")
		return
	}
	writeJSON(w, http.StatusOK, s.targets[i])
}

func applyTarget(t *apiclient.Target, in apiclient.TargetInput) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Biz != nil {
		t.Biz = *in.Biz
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.FreqMinutes != nil {
		t.FreqMinutes = in.FreqMinutes
	}
	if in.ScheduleMode != nil {
		t.ScheduleMode = *in.ScheduleMode
	}
	if in.IntervalValue != nil {
		t.IntervalValue = in.IntervalValue
	}
	if in.IntervalUnit != nil {
		t.IntervalUnit = *in.IntervalUnit
	}
	if in.DailyTimes != nil {
		t.DailyTimes = in.DailyTimes
	}
	if in.CronExpr != nil {
		t.CronExpr = *in.CronExpr
	}
	if in.Enabled != nil {
		t.Enabled = *in.Enabled
	}
	if in.AccountID != nil {
		t.AccountID = *in.AccountID
	}
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var in apiclient.TargetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		writeMessage(w, http.StatusBadRequest, "name required")
		return
	}
	if in.AccountID == nil || *in.AccountID == "" {
		writeMessage(w, http.StatusBadRequest, "account_id required")
		return
	}

	t := apiclient.Target{
		ID:           uuid.NewString(),
		Enabled:      true,
		ScheduleMode: "daily",
		DailyTimes:   append([]string{}, defaultDailyTimes...),
		CreatedAt:    now(),
	}
	applyTarget(&t, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.targets {
		if existing.Name == t.Name {
			writeMessage(w, http.StatusBadRequest, "target already exists")
			return
		}
	}
	s.targets = append(s.targets, t)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	var in apiclient.TargetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTarget(chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "target not found")
		return
	}
	applyTarget(&s.targets[i], in)
	writeJSON(w, http.StatusOK, s.targets[i])
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTarget(chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "target not found")
		return
	}
	s.targets = append(s.targets[:i], s.targets[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRunTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findTarget(id) < 0 {
		writeMessage(w, http.StatusNotFound, "target not found")
		return
	}
	s.runs[id]++
	writeJSON(w, http.StatusOK, map[string]bool{"triggered": true})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	seen := map[string]bool{}
	out := []string{}
	for _, t := range s.targets {
		if t.Category != "" && !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	s.mu.Unlock()

	sort.Strings(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) findAccount(id string) int {
	for i, a := range s.accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func epochNow() apiclient.Timestamp {
	return apiclient.Timestamp(strconv.FormatInt(time.Now().Unix(), 10))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("q"))

	s.mu.Lock()
	out := []apiclient.Account{}
	for _, a := range s.accounts {
		if text == "" || containsFold(a.Name, text) {
			out = append(out, a)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func applyAccount(a *apiclient.Account, in apiclient.AccountInput) {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Token != nil {
		a.Token = *in.Token
	}
	if in.Cookie != nil {
		a.Cookie = *in.Cookie
	}
	if in.Remark != nil {
		a.Remark = *in.Remark
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in apiclient.AccountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if in.Name == nil || in.Token == nil || in.Cookie == nil ||
		strings.TrimSpace(*in.Name) == "" || *in.Token == "" || *in.Cookie == "" {
		writeMessage(w, http.StatusBadRequest, "name, token and cookie required")
		return
	}

	a := apiclient.Account{ID: uuid.NewString(), UpdatedAt: epochNow()}
	applyAccount(&a, in)

	s.mu.Lock()
	s.accounts = append(s.accounts, a)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var in apiclient.AccountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findAccount(chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "account not found")
		return
	}
	applyAccount(&s.accounts[i], in)
	s.accounts[i].UpdatedAt = epochNow()
	writeJSON(w, http.StatusOK, s.accounts[i])
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findAccount(chi.URLParam(r, "id"))
	if i < 0 {
		writeMessage(w, http.StatusNotFound, "account not found")
		return
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	targetID := q.Get("target_id")
	targetName := q.Get("target_name")
	status := q.Get("status")
	latestOnly := q.Get("latest_only") == "true"

	s.mu.Lock()
	var matched []apiclient.LogEntry
	seen := map[string]bool{}
	// Newest entries were appended last.
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if targetID != "" && l.TargetID != targetID {
			continue
		}
		if targetName != "" && !containsFold(l.TargetName, targetName) {
			continue
		}
		if status != "" && l.Status != status {
			continue
		}
		if latestOnly {
			if seen[l.TargetID] {
				continue
			}
			seen[l.TargetID] = true
		}
		matched = append(matched, l)
	}
	s.mu.Unlock()

	page, size := paging(r)
	lo, hi := pageBounds(len(matched), page, size)
	writeJSON(w, http.StatusOK, apiclient.LogPage{
		Total: len(matched),
		Items: append([]apiclient.LogEntry{}, matched[lo:hi]...),
	})
}

func (s *Server) handleCleanupLogs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := 0
	for i := range s.logs {
		if s.logs[i].Status == "running" {
			s.logs[i].Status = "timeout"
			n++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleRefreshJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
