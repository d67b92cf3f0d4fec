package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recorder receives one observation per dispatched operation.
type Recorder interface {
	RecordOperation(resource, operation, code string, duration time.Duration)
}

// Operation names used in logs and metrics.
const (
	OpSearch   = "search"
	OpRetrieve = "retrieve"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpPurge    = "purge"
)

// Dispatcher routes HTTP requests to registered resources.
type Dispatcher struct {
	reg        *Registry
	props      GlobalProperties
	maxResults int
	recorder   Recorder
}

// NewDispatcher creates the dispatcher. props and recorder may be nil.
func NewDispatcher(reg *Registry, props GlobalProperties, maxResultsDefault int, recorder Recorder) *Dispatcher {
	return &Dispatcher{reg: reg, props: props, maxResults: maxResultsDefault, recorder: recorder}
}

// RegisterRoutes mounts the resource routes on g, which is expected to be
// rooted at URLPrefix/APIVersion.
func (d *Dispatcher) RegisterRoutes(g *echo.Group) {
	g.GET("/:resource", d.Search)
	g.GET("/:resource/:uuid", d.Retrieve)
	g.POST("/:resource", d.Create)
	g.POST("/:resource/:uuid", d.Update)
	g.DELETE("/:resource/:uuid", d.Delete)
}

// errorBody is the wire shape of a failed request.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code     Code              `json:"code"`
	Message  string            `json:"message"`
	Property string            `json:"property,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (d *Dispatcher) Search(c echo.Context) error {
	return d.run(c, OpSearch, func(res Resource, rc RequestContext) error {
		out, err := res.Search(c.Request().Context(), c.QueryParam(ParamQuery), rc)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	})
}

func (d *Dispatcher) Retrieve(c echo.Context) error {
	return d.run(c, OpRetrieve, func(res Resource, rc RequestContext) error {
		out, err := res.Retrieve(c.Request().Context(), c.Param("uuid"), rc.Representation)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	})
}

func (d *Dispatcher) Create(c echo.Context) error {
	return d.run(c, OpCreate, func(res Resource, rc RequestContext) error {
		payload, err := decodeBody(c)
		if err != nil {
			return err
		}
		out, err := res.Create(c.Request().Context(), payload, rc.Representation)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, out)
	})
}

func (d *Dispatcher) Update(c echo.Context) error {
	return d.run(c, OpUpdate, func(res Resource, rc RequestContext) error {
		payload, err := decodeBody(c)
		if err != nil {
			return err
		}
		out, err := res.Update(c.Request().Context(), c.Param("uuid"), payload, rc.Representation)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, out)
	})
}

// Delete voids by default; purge=true removes the entity.
func (d *Dispatcher) Delete(c echo.Context) error {
	op := OpDelete
	purge, _ := strconv.ParseBool(c.QueryParam("purge"))
	if purge {
		op = OpPurge
	}
	return d.run(c, op, func(res Resource, _ RequestContext) error {
		ctx := c.Request().Context()
		var err error
		if purge {
			err = res.Purge(ctx, c.Param("uuid"))
		} else {
			err = res.Delete(ctx, c.Param("uuid"), c.QueryParam("reason"))
		}
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func (d *Dispatcher) run(c echo.Context, op string, fn func(Resource, RequestContext) error) error {
	start := time.Now()
	name := c.Param("resource")

	err := func() error {
		res, err := d.reg.ByName(name)
		if err != nil {
			return err
		}
		rc, err := NewRequestContext(c, d.props, d.maxResults)
		if err != nil {
			return err
		}
		return fn(res, rc)
	}()

	code := "OK"
	if err != nil {
		code = string(CodeOf(err))
	}
	if d.recorder != nil {
		d.recorder.RecordOperation(name, op, code, time.Since(start))
	}
	if err == nil {
		return nil
	}
	return d.fail(c, name, op, err)
}

func (d *Dispatcher) fail(c echo.Context, resource, op string, err error) error {
	status := HTTPStatus(err)
	logger := zerolog.Ctx(c.Request().Context())
	evt := logger.Debug()
	if status >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).
		Str("resource", resource).
		Str("operation", op).
		Str("code", string(CodeOf(err))).
		Msg("resource operation failed")

	var re *Error
	if !errors.As(err, &re) {
		return c.JSON(status, errorBody{Error: errorDetail{
			Code:    CodeUnknown,
			Message: http.StatusText(status),
		}})
	}
	return c.JSON(status, errorBody{Error: errorDetail{
		Code:     re.Code,
		Message:  re.Message,
		Property: re.Property,
		Metadata: re.Metadata,
	}})
}

func decodeBody(c echo.Context) (*SimpleObject, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, ValidationFailed("unable to read request body", err)
	}
	obj := NewSimpleObject()
	if len(body) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return nil, ValidationFailed("request body must be a JSON object", err)
	}
	return obj, nil
}
