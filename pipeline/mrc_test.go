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

func TestEnrichMRC(t *testing.T) {
	t.Run("averages nbest scores", func(t *testing.T) {
		examples := []*types.Example{{QuestionID: 1, Question: "问"}}
		predictions := map[string]string{"1": " 答 案\n"}
		nbest := map[string][]types.NBestSpan{
			"1": {
				{StartLogit: 1.0, EndLogit: 2.0, StartProb: 0.5, EndProb: 0.4, StartProbV1: 0.6, EndProbV1: 0.5},
				{StartLogit: 0.5, EndLogit: 0.5, StartProb: 0.2, EndProb: 0.1, StartProbV1: 0.3, EndProbV1: 0.2},
			},
		}

		require.NoError(t, EnrichMRC(examples, predictions, nbest))
		e := examples[0]
		assert.Equal(t, "答案", e.Answer)
		assert.InDelta(t, (3.0+1.0)/2, e.MRCLogits, 1e-12)
		assert.InDelta(t, (0.5*0.4+0.2*0.1)/2, e.MRCProb, 1e-12)
		assert.InDelta(t, (0.6*0.5+0.3*0.2)/2, e.MRCProbV1, 1e-12)
		assert.True(t, e.HasMRC)
	})

	t.Run("missing prediction violates contract", func(t *testing.T) {
		examples := []*types.Example{{QuestionID: 7}}
		err := EnrichMRC(examples, map[string]string{}, map[string][]types.NBestSpan{})
		require.Error(t, err)
		assert.Equal(t, types.ErrAdapterContract, types.GetErrorCode(err))
	})

	t.Run("empty nbest violates contract", func(t *testing.T) {
		examples := []*types.Example{{QuestionID: 2}}
		err := EnrichMRC(examples,
			map[string]string{"2": "x"},
			map[string][]types.NBestSpan{"2": {}})
		require.Error(t, err)
		assert.Equal(t, types.ErrAdapterContract, types.GetErrorCode(err))
	})
}

func TestHTTPMRCClient_Predict(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			var req struct {
				Examples []*types.Example `json:"examples"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Examples, 1)

			resp := mrcResponse{
				Predictions: map[string]string{"1": "答案"},
				NBest: map[string][]types.NBestSpan{
					"1": {{Text: "答案", StartLogit: 1, EndLogit: 1, StartProb: 0.9, EndProb: 0.8, StartProbV1: 0.7, EndProbV1: 0.6}},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer srv.Close()

		client := NewHTTPMRCClient(DefaultModelClientConfig(srv.URL), nil)
		examples := []*types.Example{{QuestionID: 1, Question: "问", DocTokens: []string{"答", "案"}}}
		require.NoError(t, client.Predict(context.Background(), examples))
		assert.Equal(t, "答案", examples[0].Answer)
		assert.True(t, examples[0].HasMRC)
	})

	t.Run("server failure is retryable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewHTTPMRCClient(DefaultModelClientConfig(srv.URL), nil)
		err := client.Predict(context.Background(), []*types.Example{{QuestionID: 1}})
		require.Error(t, err)
		assert.Equal(t, types.ErrModelUnavailable, types.GetErrorCode(err))
		assert.True(t, types.IsRetryable(err))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		client := NewHTTPMRCClient(DefaultModelClientConfig("http://127.0.0.1:0"), nil)
		require.NoError(t, client.Predict(context.Background(), nil))
	})
}
