package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/pkg/logger"
)

const (
	cypherRecordAppSDKs = `
		MERGE (a:App {identifier: $identifier})
		SET a.last_analyzed = timestamp()
		WITH a
		OPTIONAL MATCH (a)-[old:EMBEDS]->(:SDK)
		DELETE old
		WITH DISTINCT a
		UNWIND $sdks AS sdk
		MERGE (s:SDK {name: sdk.name})
		SET s.category = sdk.category, s.description = sdk.description
		MERGE (a)-[:EMBEDS]->(s)`

	cypherClearAppSDKs = `
		MERGE (a:App {identifier: $identifier})
		SET a.last_analyzed = timestamp()
		WITH a
		OPTIONAL MATCH (a)-[old:EMBEDS]->(:SDK)
		DELETE old`

	cypherTopSDKs = `
		MATCH (a:App)-[:EMBEDS]->(s:SDK)
		RETURN s.name AS name, s.category AS category, count(DISTINCT a) AS apps
		ORDER BY apps DESC, name ASC
		LIMIT $limit`

	cypherAppsEmbedding = `
		MATCH (a:App)-[:EMBEDS]->(s:SDK {name: $name})
		RETURN a.identifier AS identifier
		ORDER BY identifier`
)

// GraphRepository records which apps embed which SDKs
type GraphRepository struct {
	client *Neo4jClient
	logger *logger.Logger
}

// NewGraphRepository creates a new graph repository
func NewGraphRepository(client *Neo4jClient, log *logger.Logger) *GraphRepository {
	return &GraphRepository{
		client: client,
		logger: log.WithComponent("graph-repo"),
	}
}

// sdkParams converts descriptors to Cypher parameters
func sdkParams(sdks []models.SdkDescriptor) []any {
	out := make([]any, len(sdks))
	for i, s := range sdks {
		out[i] = map[string]any{
			"name":        s.Name,
			"category":    string(s.Category),
			"description": s.Description,
		}
	}
	return out
}

// RecordAppSDKs replaces the EMBEDS edges of an app with the detected SDKs
func (r *GraphRepository) RecordAppSDKs(ctx context.Context, identifier string, sdks []models.SdkDescriptor) error {
	cypher := cypherRecordAppSDKs
	params := map[string]any{"identifier": identifier}
	if len(sdks) == 0 {
		cypher = cypherClearAppSDKs
	} else {
		params["sdks"] = sdkParams(sdks)
	}

	_, err := r.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to record sdks of %s: %w", identifier, err)
	}

	r.logger.Debug().Str("package", identifier).Int("sdks", len(sdks)).Msg("recorded app sdks")
	return nil
}

// TopSDKs returns SDKs ordered by how many apps embed them
func (r *GraphRepository) TopSDKs(ctx context.Context, limit int) ([]models.SDKPrevalence, error) {
	res, err := r.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypherTopSDKs, map[string]any{"limit": int64(limit)})
		if err != nil {
			return nil, err
		}

		out := make([]models.SDKPrevalence, 0, limit)
		for result.Next(ctx) {
			rec := result.Record()
			name, _, err := neo4j.GetRecordValue[string](rec, "name")
			if err != nil {
				return nil, err
			}
			category, _, _ := neo4j.GetRecordValue[string](rec, "category")
			apps, _, err := neo4j.GetRecordValue[int64](rec, "apps")
			if err != nil {
				return nil, err
			}
			out = append(out, models.SDKPrevalence{
				Name:     name,
				Category: models.SdkCategory(category),
				AppCount: int(apps),
			})
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query top sdks: %w", err)
	}
	return res.([]models.SDKPrevalence), nil
}

// AppsEmbedding lists the identifiers of apps that embed the named SDK
func (r *GraphRepository) AppsEmbedding(ctx context.Context, sdkName string) ([]string, error) {
	res, err := r.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypherAppsEmbedding, map[string]any{"name": sdkName})
		if err != nil {
			return nil, err
		}
		var ids []string
		for result.Next(ctx) {
			id, _, err := neo4j.GetRecordValue[string](result.Record(), "identifier")
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query apps embedding %s: %w", sdkName, err)
	}
	ids, _ := res.([]string)
	return ids, nil
}
