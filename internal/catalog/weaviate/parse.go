package weaviate

import (
	"github.com/weaviate/weaviate/entities/models"

	"stemswap/internal/catalog"
)

const additionalKey = "_additional"

// parseObjects extracts records from a GraphQL Get response. Malformed
// objects are skipped and counted. The score is the cosine similarity derived
// from the reported distance.
func parseObjects(data map[string]models.JSONObject, className, vectorName string) ([]catalog.ScoredRecord, int) {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil, 0
	}
	objects, ok := get[className].([]any)
	if !ok {
		return nil, 0
	}
	records := make([]catalog.ScoredRecord, 0, len(objects))
	skipped := 0
	for _, obj := range objects {
		m, ok := obj.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		payload := make(catalog.Payload, len(m))
		for k, v := range m {
			if k != additionalKey {
				payload[k] = v
			}
		}
		record := catalog.ScoredRecord{Record: catalog.Record{Payload: payload}}
		if additional, ok := m[additionalKey].(map[string]any); ok {
			if id, ok := additional["id"].(string); ok {
				record.ID = id
			}
			if distance, ok := additional["distance"].(float64); ok {
				record.Score = scoreFromDistance(distance)
			}
			record.Vectors = parseVectors(additional, vectorName)
		}
		records = append(records, record)
	}
	return records, skipped
}

func parseVectors(additional map[string]any, vectorName string) map[string][]float32 {
	if vectorName == "" {
		if vec := toFloat32s(additional["vector"]); vec != nil {
			return map[string][]float32{"": vec}
		}
		return nil
	}
	named, ok := additional["vectors"].(map[string]any)
	if !ok {
		return nil
	}
	if vec := toFloat32s(named[vectorName]); vec != nil {
		return map[string][]float32{vectorName: vec}
	}
	return nil
}

func toFloat32s(v any) []float32 {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(items))
	for _, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil
		}
		out = append(out, float32(f))
	}
	return out
}

// distanceForThreshold converts a cosine similarity threshold into the
// maximum cosine distance Weaviate accepts.
func distanceForThreshold(threshold float64) float32 {
	return float32(1 - threshold)
}

func scoreFromDistance(distance float64) float64 {
	return 1 - distance
}
