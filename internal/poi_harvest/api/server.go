package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/model"
	"poi-harvest/internal/poi_harvest/sink"
)

// EntityFinder pages through stored entities.
type EntityFinder interface {
	Find(ctx context.Context, q sink.Query) ([]model.Entity, int64, error)
}

// Server is a read-only view over a harvest. Without a Finder, /entities
// pages through the final artifact on disk.
type Server struct {
	Finder       EntityFinder
	FinalPath    string
	ReportPath   string
	ProgressPath string
	Gatherer     prometheus.Gatherer
	Log          *zap.Logger
}

func (s *Server) Router() *gin.Engine {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/entities", s.listEntities) // ?partition=&category=&page=1&limit=20
	r.GET("/report", s.report)
	r.GET("/progress", s.progress)
	if s.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func pageParams(c *gin.Context) sink.Query {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return sink.Query{
		Partition: c.Query("partition"),
		Category:  c.Query("category"),
		Page:      page,
		Limit:     limit,
	}
}

func (s *Server) listEntities(c *gin.Context) {
	q := pageParams(c)

	var (
		data  []model.Entity
		total int64
		err   error
	)
	if s.Finder != nil {
		data, total, err = s.Finder.Find(c, q)
	} else {
		data, total, err = s.fromFile(q)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if data == nil {
		data = []model.Entity{}
	}
	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"data":  data,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// fromFile filters and pages the final artifact in memory.
func (s *Server) fromFile(q sink.Query) ([]model.Entity, int64, error) {
	var all []model.Entity
	if err := helper.ReadJSON(s.FinalPath, &all); err != nil {
		return nil, 0, err
	}
	matched := all[:0]
	for _, e := range all {
		if q.Partition != "" && e.Partition != q.Partition {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		matched = append(matched, e)
	}

	skip := (q.Page - 1) * q.Limit
	end := min(skip+q.Limit, len(matched))
	start := min(skip, end)
	return matched[start:end], int64(len(matched)), nil
}

func (s *Server) report(c *gin.Context) {
	var rep model.UsageReport
	if err := helper.ReadJSON(s.ReportPath, &rep); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) progress(c *gin.Context) {
	var st model.RunState
	if err := helper.ReadJSON(s.ProgressPath, &st); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusOK, gin.H{"running": false})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"running":          true,
		"runId":            st.RunID,
		"timestamp":        st.Timestamp,
		"totalEntities":    st.TotalEntities,
		"currentPartition": st.CurrentPartition,
		"currentCategory":  st.CurrentCategory,
		"cursor":           st.Cursor,
		"completed":        st.Completed,
		"usageReport":      st.Usage,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.Log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
