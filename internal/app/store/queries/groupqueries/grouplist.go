// Package groupqueries provides complex read-only queries for groups.
package groupqueries

import (
	"context"

	"github.com/dalemusser/studyhub/internal/app/system/paging"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// GroupListItem holds one row of the browse list with computed counts.
type GroupListItem struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	NameCI      string             `bson:"name_ci"`
	Description string             `bson:"description"`
	Subject     string             `bson:"subject"`
	IsPrivate   bool               `bson:"is_private"`
	OwnerName   string             `bson:"owner_name"`
	MemberCount int                `bson:"member_count"`
}

// GroupListResult contains the paginated results and metadata.
type GroupListResult struct {
	Items []GroupListItem
	Total int64
}

// ListFilter defines the filter options for listing groups.
type ListFilter struct {
	GroupIDs    []primitive.ObjectID // restrict to these groups when non-nil
	Subject     string
	SearchQuery string // prefix search on name_ci
}

// ListGroupsWithCounts fetches a keyset-paginated list of groups with
// owner names and member counts using a single $facet aggregation.
func ListGroupsWithCounts(
	ctx context.Context,
	db *mongo.Database,
	filter ListFilter,
	page paging.Keyset,
) (GroupListResult, error) {
	var result GroupListResult

	baseFilter := andify(buildBaseClauses(filter))

	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: baseFilter}},
		bson.D{{Key: "$facet", Value: bson.M{
			"totalCount": []bson.M{
				{"$count": "count"},
			},
			"data": buildDataPipeline(page),
		}}},
	}

	cur, err := db.Collection("groups").Aggregate(ctx, pipe)
	if err != nil {
		return result, err
	}
	defer cur.Close(ctx)

	var aggResult struct {
		TotalCount []struct {
			Count int64 `bson:"count"`
		} `bson:"totalCount"`
		Data []GroupListItem `bson:"data"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&aggResult); err != nil {
			return result, err
		}
	}

	if len(aggResult.TotalCount) > 0 {
		result.Total = aggResult.TotalCount[0].Count
	}
	result.Items = aggResult.Data
	if result.Items == nil {
		result.Items = []GroupListItem{}
	}

	return result, nil
}

func buildBaseClauses(filter ListFilter) []bson.M {
	var clauses []bson.M
	if filter.GroupIDs != nil {
		clauses = append(clauses, bson.M{"_id": bson.M{"$in": filter.GroupIDs}})
	}
	if filter.Subject != "" {
		clauses = append(clauses, bson.M{"subject": filter.Subject})
	}
	if filter.SearchQuery != "" {
		q := text.Fold(filter.SearchQuery)
		hi := q + "\uffff"
		clauses = append(clauses, bson.M{"name_ci": bson.M{"$gte": q, "$lt": hi}})
	}
	return clauses
}

// buildDataPipeline applies the keyset window, sorts, limits, and joins
// the owner name and member count.
func buildDataPipeline(page paging.Keyset) []bson.M {
	pipeline := []bson.M{}

	if ks := page.Window("name_ci"); ks != nil {
		pipeline = append(pipeline, bson.M{"$match": ks})
	}

	pipeline = append(pipeline,
		bson.M{"$sort": page.Sort("name_ci")},
		bson.M{"$limit": page.Limit()},
	)

	pipeline = append(pipeline,
		bson.M{"$lookup": bson.M{
			"from": "group_memberships",
			"let":  bson.M{"gid": "$_id"},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$eq": []string{"$group_id", "$$gid"}}}},
				{"$project": bson.M{"user_id": 1, "role": 1}},
			},
			"as": "memberships",
		}},
		bson.M{"$lookup": bson.M{
			"from": "users",
			"let": bson.M{"owners": bson.M{"$map": bson.M{
				"input": bson.M{"$filter": bson.M{
					"input": "$memberships",
					"as":    "m",
					"cond":  bson.M{"$eq": []interface{}{"$$m.role", models.MemberRoleOwner}},
				}},
				"as": "m",
				"in": "$$m.user_id",
			}}},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$in": []string{"$_id", "$$owners"}}}},
				{"$project": bson.M{"full_name": 1}},
				{"$limit": 1},
			},
			"as": "owner",
		}},
	)

	pipeline = append(pipeline,
		bson.M{"$project": bson.M{
			"_id":         1,
			"name":        1,
			"name_ci":     1,
			"description": 1,
			"subject":     1,
			"is_private":  1,
			"owner_name": bson.M{"$ifNull": []interface{}{
				bson.M{"$arrayElemAt": []interface{}{"$owner.full_name", 0}},
				"",
			}},
			"member_count": bson.M{"$size": "$memberships"},
		}},
	)

	return pipeline
}

// andify composes clauses into a single bson.M with optional $and.
func andify(clauses []bson.M) bson.M {
	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0]
	default:
		return bson.M{"$and": clauses}
	}
}
