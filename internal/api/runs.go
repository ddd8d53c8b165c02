package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"stockcrew/internal/domain/analysis"
	runsvc "stockcrew/internal/services/analysis"
	"stockcrew/pkg/errors"
)

// Pipeline is the part of the analysis service the web front end drives.
type Pipeline interface {
	Start(ctx context.Context, subject string, confirmer runsvc.Confirmer) (*analysis.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*analysis.Run, error)
	Recent(ctx context.Context, limit int) ([]analysis.Run, error)
	Active() (*analysis.Run, bool)
}

var _ Pipeline = (*runsvc.Service)(nil)

type createRunRequest struct {
	Subject string `json:"subject"`
}

type confirmRequest struct {
	Approved *bool  `json:"approved"`
	Feedback string `json:"feedback"`
}

type runView struct {
	*analysis.Run
	Started  string `json:"started"`
	Elapsed  string `json:"elapsed,omitempty"`
	Awaiting bool   `json:"awaiting"`
}

func (s *Server) view(run *analysis.Run) runView {
	v := runView{
		Run:      run,
		Started:  humanize.Time(run.CreatedAt),
		Awaiting: s.gate.Waiting(run.ID.String()),
	}
	if d := run.Duration(); d > 0 {
		v.Elapsed = strings.TrimSpace(humanize.RelTime(run.CreatedAt, run.CreatedAt.Add(d), "", ""))
	}
	return v
}

func (s *Server) createRun(c echo.Context) error {
	var req createRunRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "malformed request body")
	}

	run, err := s.pipeline.Start(c.Request().Context(), req.Subject, s.gate)
	if err != nil {
		return err
	}
	s.log.Infow("Run accepted", "run_id", run.ID, "subject", run.Subject)
	return c.JSON(http.StatusAccepted, s.view(run))
}

func (s *Server) getRun(c echo.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	run, err := s.pipeline.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.view(run))
}

func (s *Server) listRuns(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return errors.Wrapf(errors.ErrInvalidInput, "limit %q", raw)
		}
		limit = n
	}

	runs, err := s.pipeline.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	out := make([]runView, 0, len(runs)+1)
	if active, ok := s.pipeline.Active(); ok {
		out = append(out, s.view(active))
	}
	for i := range runs {
		if len(out) > 0 && out[0].ID == runs[i].ID {
			continue
		}
		out = append(out, s.view(&runs[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": out, "at": time.Now().UTC()})
}

// confirmRun answers the report gate. A missing "approved" field counts as
// approval, like pressing enter on the terminal.
func (s *Server) confirmRun(c echo.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "malformed request body")
	}

	d := runsvc.Decision{Approved: true, Feedback: strings.TrimSpace(req.Feedback)}
	if req.Approved != nil {
		d.Approved = *req.Approved
	}
	if !d.Approved {
		d.Feedback = ""
	}
	if err := s.gate.Resolve(id.String(), d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func runID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidInput, "run id %q", c.Param("id"))
	}
	return id, nil
}
