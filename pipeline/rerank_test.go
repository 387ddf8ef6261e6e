package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duqa-project/duqa/types"
)

func TestEnrichRerank(t *testing.T) {
	t.Run("takes positive class logit", func(t *testing.T) {
		examples := []*types.Example{{QuestionID: 1}, {QuestionID: 2}}
		logits := map[string][]float64{
			"1": {-0.3, 1.7},
			"2": {0.9, -2.1},
		}

		require.NoError(t, EnrichRerank(examples, logits))
		assert.Equal(t, 1.7, examples[0].RerankLogits)
		assert.Equal(t, -2.1, examples[1].RerankLogits)
		assert.True(t, examples[0].HasRerank)
		assert.True(t, examples[1].HasRerank)
	})

	t.Run("missing candidate violates contract", func(t *testing.T) {
		examples := []*types.Example{{QuestionID: 3}}
		err := EnrichRerank(examples, map[string][]float64{})
		require.Error(t, err)
		assert.Equal(t, types.ErrAdapterContract, types.GetErrorCode(err))
	})

	t.Run("truncated logit pair violates contract", func(t *testing.T) {
		examples := []*types.Example{{QuestionID: 4}}
		err := EnrichRerank(examples, map[string][]float64{"4": {0.5}})
		require.Error(t, err)
		assert.Equal(t, types.ErrAdapterContract, types.GetErrorCode(err))
	})
}

func TestHTTPRerankClient_Predict(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := rerankResponse{Logits: map[string][]float64{"1": {-1.0, 2.5}}}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer srv.Close()

		client := NewHTTPRerankClient(DefaultModelClientConfig(srv.URL), nil)
		examples := []*types.Example{{QuestionID: 1, Question: "问", Answer: "答"}}
		require.NoError(t, client.Predict(context.Background(), examples))
		assert.Equal(t, 2.5, examples[0].RerankLogits)
	})

	t.Run("unreachable endpoint is retryable", func(t *testing.T) {
		cfg := DefaultModelClientConfig("http://127.0.0.1:1/predict")
		client := NewHTTPRerankClient(cfg, nil)
		err := client.Predict(context.Background(), []*types.Example{{QuestionID: 1}})
		require.Error(t, err)
		assert.Equal(t, types.ErrModelUnavailable, types.GetErrorCode(err))
		assert.True(t, types.IsRetryable(err))
	})
}
