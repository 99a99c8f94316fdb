package store

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MockDriver records every query and replays queued results in order.
type MockDriver struct {
	Queries      []string
	Params       []map[string]any
	Results      []neo4j.EagerResult
	Err          error
	IndicesBuilt bool
	Closed       bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	m.Params = append(m.Params, params)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if len(m.Results) == 0 {
		return neo4j.EagerResult{}, nil
	}
	res := m.Results[0]
	m.Results = m.Results[1:]
	return res, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	m.IndicesBuilt = true
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}

func (m *MockDriver) LastParams() map[string]any {
	if len(m.Params) == 0 {
		return nil
	}
	return m.Params[len(m.Params)-1]
}

func leadResult(props ...map[string]any) neo4j.EagerResult {
	res := neo4j.EagerResult{Keys: []string{"lead"}}
	for _, p := range props {
		res.Records = append(res.Records, &neo4j.Record{Keys: []string{"lead"}, Values: []any{p}})
	}
	return res
}
