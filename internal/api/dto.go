package api

import (
	"strconv"
	"time"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lifecycle"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/reconciler"
)

// ID платформы передаются строками: 64-битные числа не переживают JSON
// в клиентах на JavaScript.

// Request DTOs

// CreateRequestRequest — запрос на регистрацию заявки.
type CreateRequestRequest struct {
	Key          int64          `json:"key,string"`
	Kind         string         `json:"kind"`
	GuildID      int64          `json:"guild_id,string,omitempty"`
	ChannelID    int64          `json:"channel_id,string,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	BypassSource bool           `json:"bypass_source,omitempty"`
}

// ToDomain конвертирует запрос в domain.Request.
func (r CreateRequestRequest) ToDomain() *domain.Request {
	req := &domain.Request{
		Key:       domain.Key(r.Key),
		Kind:      domain.Kind(r.Kind),
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		Payload:   domain.NormalizePayload(r.Payload),
	}
	if req.Kind.IsDualApproval() {
		req.Gate = &domain.TransferGate{BypassSource: r.BypassSource}
	}
	return req
}

// ActionRequest — запрос на действие над заявкой.
type ActionRequest struct {
	Action  string `json:"action"`
	ActorID int64  `json:"actor_id,string"`
	Reason  string `json:"reason,omitempty"`
}

// SweepRequest — запрос на сверку.
type SweepRequest struct {
	Kind   string `json:"kind"`
	DryRun bool   `json:"dry_run"`
}

// RequestResponse — ответ с заявкой.
type RequestResponse struct {
	Key       string         `json:"key"`
	Kind      string         `json:"kind"`
	Phase     string         `json:"phase"`
	GuildID   string         `json:"guild_id,omitempty"`
	ChannelID string         `json:"channel_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Gate      *GateResponse  `json:"gate,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// GateResponse — состояние двухэтапного согласования.
type GateResponse struct {
	ApprovedBySource string `json:"approved_by_source,omitempty"`
	ApprovedByTarget string `json:"approved_by_target,omitempty"`
	BypassSource     bool   `json:"bypass_source"`
}

// RequestFromDomain конвертирует domain.Request в RequestResponse.
func RequestFromDomain(r *domain.Request) RequestResponse {
	phase, _ := lifecycle.PhaseOf(r)
	resp := RequestResponse{
		Key:       formatID(int64(r.Key)),
		Kind:      r.Kind.String(),
		Phase:     phase.String(),
		GuildID:   formatID(r.GuildID),
		ChannelID: formatID(r.ChannelID),
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
	}
	if r.Gate != nil {
		resp.Gate = &GateResponse{
			ApprovedBySource: formatID(r.Gate.ApprovedBySource),
			ApprovedByTarget: formatID(r.Gate.ApprovedByTarget),
			BypassSource:     r.Gate.BypassSource,
		}
	}
	return resp
}

// PhaseResponse — фаза заявки после действия.
type PhaseResponse struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Phase string `json:"phase"`
}

// SweepResponse — итог сверки.
type SweepResponse struct {
	Kind    string   `json:"kind"`
	DryRun  bool     `json:"dry_run"`
	Checked int      `json:"checked"`
	Pruned  int      `json:"pruned"`
	Missing []string `json:"missing"`
	Expired []string `json:"expired"`
	Unknown []string `json:"unknown"`
	Busy    []string `json:"busy"`
}

// SweepFromResult конвертирует reconciler.Result в SweepResponse.
func SweepFromResult(res reconciler.Result) SweepResponse {
	return SweepResponse{
		Kind:    res.Kind.String(),
		DryRun:  res.DryRun,
		Checked: res.Checked,
		Pruned:  res.Pruned(),
		Missing: formatKeys(res.Missing),
		Expired: formatKeys(res.Expired),
		Unknown: formatKeys(res.Unknown),
		Busy:    formatKeys(res.Busy),
	}
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func formatKeys(keys []domain.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strconv.FormatInt(int64(k), 10)
	}
	return out
}
