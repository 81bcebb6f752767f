package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
)

// viewParams are the table view query parameters shared by the HTML page
// and the JSON API: field, q, sort and desc.
type viewParams struct {
	Field core.Field
	Query string
	Sort  query.SortState
}

func parseViewParams(r *http.Request) (viewParams, error) {
	v := r.URL.Query()
	p := viewParams{Field: core.FieldCategory, Query: strings.TrimSpace(v.Get("q"))}

	if raw := v.Get("field"); raw != "" {
		f, err := core.ParseField(raw)
		if err != nil {
			return p, fmt.Errorf("field %q: %w", raw, err)
		}
		p.Field = f
	}
	if raw := v.Get("sort"); raw != "" {
		f, err := core.ParseField(raw)
		if err != nil {
			return p, fmt.Errorf("sort %q: %w", raw, err)
		}
		p.Sort.Field = f
		if d := v.Get("desc"); d != "" {
			desc, err := strconv.ParseBool(d)
			if err != nil {
				return p, fmt.Errorf("desc %q: %w", d, err)
			}
			p.Sort.Descending = desc
		}
	}
	return p, nil
}

// values encodes p back into query parameters, with sort replaced by s.
func (p viewParams) values(s query.SortState) url.Values {
	v := url.Values{}
	v.Set("field", string(p.Field))
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if s.Field != "" {
		v.Set("sort", string(s.Field))
		v.Set("desc", strconv.FormatBool(s.Descending))
	}
	return v
}

// cacheKey ties a result set to the ledger version it was computed from.
func (s *Server) cacheKey(p viewParams) string {
	return fmt.Sprintf("v%d|%s|%s|%s|%t", s.svc.Version(), p.Field, p.Query, p.Sort.Field, p.Sort.Descending)
}

// resultSet runs the search (when q is set) and the sort for p, going
// through the cache.
func (s *Server) resultSet(r *http.Request, p viewParams) ResultSet {
	key := s.cacheKey(p)
	if s.results != nil {
		if rs, ok := s.results.Get(key); ok {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Result set cache hit", "key", key)
			return rs
		}
	}

	var rs ResultSet
	if p.Query == "" {
		rs.Rows = s.svc.Rows(p.Sort)
	} else {
		rows, err := s.svc.Search(p.Field, p.Query, p.Sort)
		if errors.Is(err, services.ErrNoResults) {
			rs.NoResults = true
		}
		rs.Rows = rows
	}

	if s.results != nil {
		s.results.Set(key, rs)
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Result set computed",
		log.FieldOperation, log.OpSearch,
		log.FieldField, string(p.Field),
		log.FieldResults, len(rs.Rows))
	return rs
}

type fieldOption struct {
	Value   string
	Label   string
	Checked bool
}

type headerLink struct {
	Label string
	Href  string
	Arrow string
}

type rowView struct {
	Category string
	Amount   string
	Type     string
	Date     string
}

type indexView struct {
	Fields     []fieldOption
	Query      string
	Sort       string
	Descending bool
	Headers    []headerLink
	Rows       []rowView
	NoResults  bool
	Message    string
	Summary    core.Summary
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	p, err := parseViewParams(r)
	if err != nil {
		logger.WarnContext(r.Context(), "Invalid view parameters", log.FieldError, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rs := s.resultSet(r, p)
	data := indexView{
		Query:      p.Query,
		Sort:       string(p.Sort.Field),
		Descending: p.Sort.Descending,
		NoResults:  rs.NoResults,
		Summary:    s.svc.Summary(),
	}
	if rs.NoResults {
		data.Message = "No results were found to match the chosen search criteria."
	}
	for _, f := range core.Fields() {
		data.Fields = append(data.Fields, fieldOption{Value: string(f), Label: f.Label(), Checked: f == p.Field})

		next := p.Sort.Toggle(f)
		h := headerLink{Label: f.Label(), Href: "/?" + p.values(next).Encode()}
		if p.Sort.Field == f {
			h.Arrow = "▲"
			if p.Sort.Descending {
				h.Arrow = "▼"
			}
		}
		data.Headers = append(data.Headers, h)
	}
	for _, row := range rs.Rows {
		data.Rows = append(data.Rows, rowView{
			Category: row.Category,
			Amount:   row.Amount.String(),
			Type:     row.Type.String(),
			Date:     row.Date.String(),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// RowResponse is one transaction in the JSON API.
type RowResponse struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Date     string `json:"date"`
}

// TransactionsResponse represents the response for GET /api/transactions.
type TransactionsResponse struct {
	Transactions []RowResponse `json:"transactions"`
	NoResults    bool          `json:"no_results,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// CategoryTotals is one category line of the summary response.
type CategoryTotals struct {
	Name    string `json:"name"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

// SummaryResponse represents the response for GET /api/summary.
type SummaryResponse struct {
	TotalIncome   string           `json:"total_income"`
	TotalExpense  string           `json:"total_expense"`
	UsableBalance string           `json:"usable_balance"`
	Categories    []CategoryTotals `json:"categories"`
}

// ErrorResponse is the body of every JSON API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := parseViewParams(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	rs := s.resultSet(r, p)

	resp := TransactionsResponse{Transactions: make([]RowResponse, 0, len(rs.Rows))}
	if rs.NoResults {
		resp.NoResults = true
		resp.Message = services.ErrNoResults.Error()
	}
	for _, row := range rs.Rows {
		resp.Transactions = append(resp.Transactions, RowResponse{
			ID:       row.ID.String(),
			Category: row.Category,
			Amount:   row.Amount.String(),
			Type:     row.Type.String(),
			Date:     row.Date.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	sum := s.svc.Summary()
	resp := SummaryResponse{
		TotalIncome:   sum.TotalIncome.String(),
		TotalExpense:  sum.TotalExpense.String(),
		UsableBalance: sum.UsableBalance.String(),
		Categories:    make([]CategoryTotals, 0, len(sum.ByCategory)),
	}
	for _, c := range sum.ByCategory {
		resp.Categories = append(resp.Categories, CategoryTotals{
			Name:    c.Name,
			Income:  c.Income.String(),
			Expense: c.Expense.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
