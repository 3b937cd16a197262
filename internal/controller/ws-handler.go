package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/sebadev7/dodi-server/internal/domain"
	"github.com/sebadev7/dodi-server/internal/service/session"
)

type EmptyInput struct{}

func (c *controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

type CreateSessionInput struct {
	MediaReference string `json:"media_reference" validate:"required"`
	AuthorityMode  bool   `json:"authority_mode"`
	ParticipantId  string `json:"participant_id" validate:"max=64"`
}

func (c *controller) handleCreateSession(ctx context.Context, conn *websocket.Conn, input CreateSessionInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %+v", ErrValidationError, validationErrors)
	}

	binding := c.getBindingFromCtx(ctx)
	if err := c.implicitLeave(ctx, binding); err != nil {
		return err
	}

	createResp, err := c.sessionService.CreateSession(ctx, &session.CreateSessionParams{
		Conn:           conn,
		ParticipantId:  input.ParticipantId,
		MediaReference: input.MediaReference,
		AuthorityMode:  input.AuthorityMode,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	binding.join(createResp.SessionId, createResp.ParticipantId)

	c.sendToOne(ctx, conn, &Output{
		Type: "SESSION_CREATED",
		Payload: map[string]any{
			"session_id":      createResp.SessionId,
			"media_reference": createResp.State.MediaReference,
			"participant_id":  createResp.ParticipantId,
		},
	})

	return nil
}

type JoinSessionInput struct {
	SessionId     string `json:"session_id" validate:"required,max=64"`
	ParticipantId string `json:"participant_id" validate:"max=64"`
}

func (c *controller) handleJoinSession(ctx context.Context, conn *websocket.Conn, input JoinSessionInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %+v", ErrValidationError, validationErrors)
	}

	binding := c.getBindingFromCtx(ctx)
	if err := c.implicitLeave(ctx, binding); err != nil {
		return err
	}

	joinResp, err := c.sessionService.JoinSession(ctx, &session.JoinSessionParams{
		Conn:          conn,
		SessionId:     input.SessionId,
		ParticipantId: input.ParticipantId,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.sendToOne(ctx, conn, &Output{Type: "SESSION_NOT_FOUND"})
			return nil
		}
		return fmt.Errorf("failed to join session: %w", err)
	}

	binding.join(input.SessionId, joinResp.ParticipantId)

	c.sendToOne(ctx, conn, &Output{
		Type: "SESSION_JOINED",
		Payload: map[string]any{
			"position_seconds": joinResp.State.PositionSeconds,
			"is_playing":       joinResp.State.IsPlaying,
			"media_reference":  joinResp.State.MediaReference,
			"participant_id":   joinResp.ParticipantId,
		},
	})

	c.broadcast(ctx, joinResp.Conns, 0, &Output{
		Type: "PARTICIPANT_JOINED",
		Payload: map[string]any{
			"participant_id": joinResp.ParticipantId,
		},
	})

	return nil
}

type PlaybackStateInput struct {
	PositionSeconds float64 `json:"position_seconds" validate:"gte=0"`
	IsPlaying       bool    `json:"is_playing"`
	MediaReference  string  `json:"media_reference"`
}

type ReportStateInput struct {
	SessionId     string             `json:"session_id" validate:"required,max=64"`
	PlaybackState PlaybackStateInput `json:"playback_state"`
}

func (c *controller) handleReportState(ctx context.Context, conn *websocket.Conn, input ReportStateInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %+v", ErrValidationError, validationErrors)
	}

	binding := c.getBindingFromCtx(ctx)

	reportResp, err := c.sessionService.ReportState(ctx, &session.ReportStateParams{
		SessionId: input.SessionId,
		SenderId:  binding.participantId,
		Reported: domain.PlaybackState{
			PositionSeconds: input.PlaybackState.PositionSeconds,
			IsPlaying:       input.PlaybackState.IsPlaying,
			MediaReference:  input.PlaybackState.MediaReference,
		},
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.sendToOne(ctx, conn, &Output{Type: "SESSION_NOT_FOUND"})
			return nil
		}
		return fmt.Errorf("failed to report state: %w", err)
	}

	// a discarded report is normal operation, nothing goes back to anyone
	if !reportResp.Accepted {
		return nil
	}

	c.broadcast(ctx, reportResp.Conns, reportResp.Seq, &Output{
		Type:    "STATE_RECONCILED",
		Payload: reportResp.State,
	})

	return nil
}

type UpdateMediaInput struct {
	SessionId      string `json:"session_id" validate:"required,max=64"`
	MediaReference string `json:"media_reference" validate:"required"`
}

func (c *controller) handleUpdateMedia(ctx context.Context, conn *websocket.Conn, input UpdateMediaInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %+v", ErrValidationError, validationErrors)
	}

	binding := c.getBindingFromCtx(ctx)

	updateResp, err := c.sessionService.UpdateMedia(ctx, &session.UpdateMediaParams{
		SessionId:      input.SessionId,
		SenderId:       binding.participantId,
		MediaReference: input.MediaReference,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.sendToOne(ctx, conn, &Output{Type: "SESSION_NOT_FOUND"})
			return nil
		}
		return fmt.Errorf("failed to update media: %w", err)
	}

	c.broadcast(ctx, updateResp.Conns, updateResp.Seq, &Output{
		Type: "MEDIA_UPDATED",
		Payload: map[string]any{
			"media_reference": updateResp.MediaReference,
		},
	})

	return nil
}
