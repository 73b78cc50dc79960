// Package reportqueries provides complex read-only queries for reports.
package reportqueries

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// EngagementRow is one group's activity within a date range.
type EngagementRow struct {
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	GroupName   string             `bson:"group_name" json:"group_name"`
	Messages    int64              `bson:"messages" json:"messages"`
	Discussions int64              `bson:"discussions" json:"discussions"`
	Replies     int64              `bson:"replies" json:"replies"`
	NewMembers  int64              `bson:"new_members" json:"new_members"`
}

// GroupEngagement returns per-group activity counts in [start, end) for
// every existing group, ordered by total activity descending then name.
func GroupEngagement(ctx context.Context, db *mongo.Database, start, end time.Time) ([]EngagementRow, error) {
	sources := []struct {
		coll    string
		timeKey string
		set     func(*EngagementRow, int64)
	}{
		{"group_messages", "created_at", func(r *EngagementRow, n int64) { r.Messages = n }},
		{"discussions", "posted_at", func(r *EngagementRow, n int64) { r.Discussions = n }},
		{"discussion_replies", "replied_at", func(r *EngagementRow, n int64) { r.Replies = n }},
		{"group_memberships", "joined_at", func(r *EngagementRow, n int64) { r.NewMembers = n }},
	}

	rows, err := groupRows(ctx, db)
	if err != nil {
		return nil, err
	}

	for _, src := range sources {
		counts, err := CountPerGroup(ctx, db.Collection(src.coll), bson.M{
			src.timeKey: bson.M{"$gte": start, "$lt": end},
		})
		if err != nil {
			return nil, err
		}
		for id, n := range counts {
			if r, ok := rows[id]; ok {
				src.set(r, n)
			}
		}
	}

	out := make([]EngagementRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].total(), out[j].total()
		if ti != tj {
			return ti > tj
		}
		return out[i].GroupName < out[j].GroupName
	})
	return out, nil
}

func (r EngagementRow) total() int64 {
	return r.Messages + r.Discussions + r.Replies + r.NewMembers
}

func groupRows(ctx context.Context, db *mongo.Database) (map[primitive.ObjectID]*EngagementRow, error) {
	cur, err := db.Collection("groups").Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	rows := map[primitive.ObjectID]*EngagementRow{}
	for cur.Next(ctx) {
		var g struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&g); err != nil {
			return nil, err
		}
		rows[g.ID] = &EngagementRow{GroupID: g.ID, GroupName: g.Name}
	}
	return rows, cur.Err()
}

// CountPerGroup groups the documents of c matching match by group_id.
func CountPerGroup(ctx context.Context, c *mongo.Collection, match bson.M) (map[primitive.ObjectID]int64, error) {
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$group_id", "count": bson.M{"$sum": 1}}},
	}
	cur, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	result := make(map[primitive.ObjectID]int64)
	for cur.Next(ctx) {
		var row struct {
			ID    primitive.ObjectID `bson:"_id"`
			Count int64              `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.ID] = row.Count
	}
	return result, cur.Err()
}
