package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/acooeaz"
	"github.com/poiesic/acooeaz/core"
	"github.com/poiesic/acooeaz/search"
	"github.com/poiesic/acooeaz/storage"
	"github.com/poiesic/acooeaz/xref"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type entry struct {
	Name  string  `json:"name"`
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type substanceDrug struct {
	Drug  *core.Drug `json:"drug"`
	Score float64    `json:"score"`
}

type substanceGroup struct {
	Substance string          `json:"substance"`
	Drugs     []substanceDrug `json:"drugs"`
}

type articleMatch struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

type crossReference struct {
	Product   []articleMatch `json:"product"`
	Substance []articleMatch `json:"substance"`
	Disease   []articleMatch `json:"disease"`
}

type articlePage struct {
	Articles []*core.Article `json:"articles"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PerPage  int             `json:"per_page"`
}

type rebuildReport struct {
	Rows     map[string]int `json:"rows"`
	Articles int            `json:"articles"`
	Drugs    int            `json:"drugs"`
	Duration string         `json:"duration"`
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// fail writes err with the status matching its kind.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidQuery):
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requireQuery(c *gin.Context) (string, bool) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return "", false
	}
	return q, true
}

func entries(found []search.Entry) []entry {
	out := make([]entry, 0, len(found))
	for _, e := range found {
		out = append(out, entry{Name: e.DisplayName, ID: e.ID, Score: e.Score})
	}
	return out
}

// searchDrugs handles GET /api/drugs/search?q=
func (s *Server) searchDrugs(c *gin.Context) {
	q, ok := requireQuery(c)
	if !ok {
		return
	}
	found, err := s.compendium.SearchDrugByName(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries(found))
}

// searchActives handles GET /api/actives/search?q=
func (s *Server) searchActives(c *gin.Context) {
	q, ok := requireQuery(c)
	if !ok {
		return
	}
	groups, err := s.compendium.SearchActiveSubstance(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]substanceGroup, 0, len(groups))
	for _, g := range groups {
		sg := substanceGroup{Substance: g.Substance, Drugs: make([]substanceDrug, 0, len(g.Drugs))}
		for _, d := range g.Drugs {
			sg.Drugs = append(sg.Drugs, substanceDrug{Drug: d.Drug, Score: d.Score})
		}
		out = append(out, sg)
	}
	c.JSON(http.StatusOK, out)
}

// searchArticles handles GET /api/articles/search?q=
func (s *Server) searchArticles(c *gin.Context) {
	q, ok := requireQuery(c)
	if !ok {
		return
	}
	found, err := s.compendium.SearchArticlesAny(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries(found))
}

func (s *Server) getDrug(c *gin.Context) {
	drug, err := s.compendium.Store().GetDrug(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, drug)
}

// drugsByPrefix handles GET /api/drugs?prefix=
func (s *Server) drugsByPrefix(c *gin.Context) {
	prefix := c.Query("prefix")
	if prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prefix parameter is required"})
		return
	}
	drugs, err := s.compendium.DrugsByPrefix(c.Request.Context(), prefix)
	if err != nil {
		s.fail(c, err)
		return
	}
	if drugs == nil {
		drugs = []*core.Drug{}
	}
	c.JSON(http.StatusOK, drugs)
}

func (s *Server) drugTree(c *gin.Context) {
	tree, err := s.compendium.DrugNameTree(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if tree == nil {
		tree = []acooeaz.NameGroup{}
	}
	c.JSON(http.StatusOK, tree)
}

func matches(found []xref.ArticleMatch) []articleMatch {
	out := make([]articleMatch, 0, len(found))
	for _, m := range found {
		out = append(out, articleMatch{
			ID:      m.Article.ID,
			Title:   m.Article.Title,
			Keyword: m.Keyword,
			Score:   m.Score,
		})
	}
	return out
}

// articlesForDrug handles GET /api/drugs/:id/articles
func (s *Server) articlesForDrug(c *gin.Context) {
	result, err := s.compendium.FindArticlesForDrugID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, crossReference{
		Product:   matches(result.Product),
		Substance: matches(result.Substance),
		Disease:   matches(result.Disease),
	})
}

func (s *Server) getArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "article id must be an integer"})
		return
	}
	article, err := s.compendium.Store().GetArticle(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func positiveQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a positive integer"})
		return 0, false
	}
	return n, true
}

// listArticles handles GET /api/articles?page=&per_page=
func (s *Server) listArticles(c *gin.Context) {
	page, ok := positiveQuery(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := positiveQuery(c, "per_page", defaultPerPage)
	if !ok {
		return
	}
	perPage = min(perPage, maxPerPage)

	ctx := c.Request.Context()
	articles, err := s.compendium.Store().ListArticles(ctx, (page-1)*perPage, perPage)
	if err != nil {
		s.fail(c, err)
		return
	}
	total, err := s.compendium.Store().CountArticles(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, articlePage{Articles: articles, Total: total, Page: page, PerPage: perPage})
}

// rebuild handles POST /api/index/rebuild
func (s *Server) rebuild(c *gin.Context) {
	report, err := s.compendium.RebuildAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rebuildReport{
		Rows:     report.Rows,
		Articles: report.Articles,
		Drugs:    report.Drugs,
		Duration: report.Duration.String(),
	})
}
