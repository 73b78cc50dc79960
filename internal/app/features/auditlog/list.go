// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList handles GET /audit?category=&event=&user=&start=&end=&page=.
// Unknown filter values are ignored rather than rejected.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.Actor(w, r); !ok {
		return
	}
	q := r.URL.Query()

	category := strings.TrimSpace(q.Get("category"))
	if !validCategory(category) {
		category = ""
	}
	eventType := strings.TrimSpace(q.Get("event"))
	if eventType != "" && !validEventType(category, eventType) {
		eventType = ""
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	userHex := strings.TrimSpace(q.Get("user"))
	if oid, err := primitive.ObjectIDFromHex(userHex); err == nil {
		filter.UserID = &oid
	} else {
		userHex = ""
	}

	startDate, endDate := q.Get("start"), q.Get("end")
	if t, err := time.Parse("2006-01-02", startDate); err == nil {
		filter.StartTime = &t
	} else {
		startDate = ""
	}
	if t, err := time.Parse("2006-01-02", endDate); err == nil {
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	} else {
		endDate = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to query audit events", err, "A database error occurred.", "/admin")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to count audit events", err, "A database error occurred.", "/admin")
		return
	}

	items := h.resolve(ctx, events)

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	pageQuery := func(p int) string {
		v := url.Values{}
		for k, val := range map[string]string{
			"category": category, "event": eventType, "user": userHex,
			"start": startDate, "end": endDate,
		} {
			if val != "" {
				v.Set(k, val)
			}
		}
		v.Set("page", strconv.Itoa(p))
		return v.Encode()
	}

	templates.Render(w, r, "audit_list", listData{
		BaseVM:     viewdata.NewBaseVM(r, "Audit Log", "/admin"),
		Items:      items,
		Category:   category,
		EventType:  eventType,
		UserID:     userHex,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevQuery:  pageQuery(page - 1),
		NextQuery:  pageQuery(page + 1),
	})
}

// resolve turns events into display rows, batch-loading user and group
// names. A failed lookup leaves the raw ID in place.
func (h *Handler) resolve(ctx context.Context, events []audit.Event) []listItem {
	userSet := map[primitive.ObjectID]struct{}{}
	groupSet := map[primitive.ObjectID]struct{}{}
	for _, e := range events {
		if e.ActorID != nil {
			userSet[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			userSet[*e.UserID] = struct{}{}
		}
		if e.GroupID != nil {
			groupSet[*e.GroupID] = struct{}{}
		}
	}

	userNames := map[primitive.ObjectID]string{}
	if len(userSet) > 0 {
		users, err := h.Users.NamesByID(ctx, keys(userSet))
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for id, u := range users {
			userNames[id] = u.FullName
		}
	}

	groupNames := map[primitive.ObjectID]string{}
	if len(groupSet) > 0 {
		groups, err := h.Groups.List(ctx, groupstore.ListFilter{IDs: keys(groupSet)})
		if err != nil {
			h.Log.Warn("failed to fetch group names for audit log", zap.Error(err))
		}
		for _, g := range groups {
			groupNames[g.ID] = g.Name
		}
	}

	name := func(id *primitive.ObjectID, names map[primitive.ObjectID]string) string {
		if id == nil {
			return ""
		}
		if n, ok := names[*id]; ok {
			return n
		}
		return id.Hex()
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:         e.ID.Hex(),
			Timestamp:  e.Timestamp,
			Category:   e.Category,
			EventType:  e.EventType,
			ActorName:  name(e.ActorID, userNames),
			TargetName: name(e.UserID, userNames),
			GroupName:  name(e.GroupID, groupNames),
			IP:         e.IP,
			Success:    e.Success,
			Reason:     e.FailureReason,
			Details:    e.Details,
		})
	}
	return items
}

func keys(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
