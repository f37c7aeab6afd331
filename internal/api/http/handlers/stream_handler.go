package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/auth"
	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/feed"
)

// streamHeartbeat keeps idle SSE connections alive through proxies.
const streamHeartbeat = 25 * time.Second

// StreamHandler exposes the change feed as a server-sent event stream. Each
// client receives the table-level channels plus, when requested, one
// ticket's scoped channel.
type StreamHandler struct {
	bus    feed.Bus
	logger *zap.Logger
}

// NewStreamHandler constructs handler.
func NewStreamHandler(bus feed.Bus, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{bus: bus, logger: logger}
}

// Events GET /events?ticket_id=N.
func (h *StreamHandler) Events(c *fiber.Ctx) error {
	self := auth.CurrentProfile(c)
	channels := []string{
		feed.TableChannel(feed.TableTickets),
		feed.TableChannel(feed.TableProfiles),
		feed.TableChannel(feed.TableNotifications),
		feed.TableChannel(feed.TableCategories),
		feed.TableChannel(feed.TableFAQs),
		feed.TableChannel(feed.TableAttachments),
	}
	if raw := c.Query("ticket_id"); raw != "" {
		ticketID, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && ticketID > 0 {
			channels = append(channels, feed.TicketChannel(ticketID))
		}
	}

	// buffered so a slow client drops events instead of blocking the bus
	ch := make(chan feed.Event, 64)
	unsubscribe, err := h.bus.Subscribe(c.UserContext(), func(ev feed.Event) {
		if !visibleTo(self, ev) {
			return
		}
		select {
		case ch <- ev:
		default:
			h.logger.Warn("sse client too slow, dropping event", zap.String("table", ev.Table))
		}
	}, channels...)
	if err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()
		for {
			select {
			case ev := <-ch:
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Table, data)
			case <-ticker.C:
				fmt.Fprint(w, ": heartbeat\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

// visibleTo filters events the session store would also discard: other
// users' tickets for the plain-user role, other principals' notifications,
// and private notes for non-managing roles.
func visibleTo(self *domain.Profile, ev feed.Event) bool {
	switch ev.Table {
	case feed.TableTickets:
		if self.CanManage() {
			return true
		}
		raw := ev.New
		if ev.Type == feed.EventDelete {
			raw = ev.Old
		}
		var t struct {
			CreatorID string `json:"creator_id"`
		}
		if err := json.Unmarshal(raw, &t); err != nil {
			return false
		}
		return self != nil && t.CreatorID == self.ID
	case feed.TableNotifications:
		var n struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(ev.New, &n); err != nil {
			return false
		}
		return self != nil && n.UserID == self.ID
	case feed.TableMessages:
		var m struct {
			IsPrivate bool `json:"is_private"`
		}
		if err := json.Unmarshal(ev.New, &m); err != nil {
			return false
		}
		return !m.IsPrivate || self.CanManage()
	default:
		return true
	}
}
