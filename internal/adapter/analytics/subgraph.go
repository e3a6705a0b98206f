package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
	"wallet-orchestrator/internal/pkg/apperrors"
)

// Compile-time check
var _ domainService.PoolAnalyticsSource = (*Subgraph)(nil)

const poolQuery = `
	query PoolAnalytics($id: ID!, $days: Int!) {
		pool(id: $id) {
			id
			feeTier
			liquidity
			token0Price
			token1Price
			totalValueLockedUSD
			totalValueLockedToken0
			totalValueLockedToken1
			volumeUSD
			feesUSD
			token0 { symbol name decimals }
			token1 { symbol name decimals }
			poolDayData(first: $days, orderBy: date, orderDirection: desc) {
				date
				volumeUSD
				feesUSD
				tvlUSD
			}
		}
	}
`

var daysPerYear = decimal.NewFromInt(365)

// GraphQLRequest is a GraphQL request body.
type GraphQLRequest struct {
	Query     string      `json:"query"`
	Variables interface{} `json:"variables"`
}

// GraphQLResponse is a GraphQL response envelope.
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type rawToken struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Decimals decimal.Decimal `json:"decimals"`
}

type rawPoolDay struct {
	Date      int64           `json:"date"`
	VolumeUSD decimal.Decimal `json:"volumeUSD"`
	FeesUSD   decimal.Decimal `json:"feesUSD"`
	TVLUSD    decimal.Decimal `json:"tvlUSD"`
}

type rawPool struct {
	ID                     string          `json:"id"`
	FeeTier                decimal.Decimal `json:"feeTier"`
	Liquidity              string          `json:"liquidity"`
	Token0Price            decimal.Decimal `json:"token0Price"`
	Token1Price            decimal.Decimal `json:"token1Price"`
	TotalValueLockedUSD    decimal.Decimal `json:"totalValueLockedUSD"`
	TotalValueLockedToken0 decimal.Decimal `json:"totalValueLockedToken0"`
	TotalValueLockedToken1 decimal.Decimal `json:"totalValueLockedToken1"`
	VolumeUSD              decimal.Decimal `json:"volumeUSD"`
	FeesUSD                decimal.Decimal `json:"feesUSD"`
	Token0                 rawToken        `json:"token0"`
	Token1                 rawToken        `json:"token1"`
	PoolDayData            []rawPoolDay    `json:"poolDayData"`
}

// Subgraph reads Uniswap V3 pool analytics from a Graph endpoint. The endpoint
// carries the API key, so it never appears in errors or logs.
type Subgraph struct {
	client   *fasthttp.Client
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSubgraph creates a subgraph client from cfg.
func NewSubgraph(cfg config.AnalyticsConfig, logger *zap.Logger) *Subgraph {
	endpoint := cfg.URL
	if strings.Contains(endpoint, "%s") {
		endpoint = fmt.Sprintf(endpoint, cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Subgraph{
		client:   &fasthttp.Client{},
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger.Named("Subgraph"),
	}
}

// PoolAnalytics returns analytics for poolID with up to days of history.
func (s *Subgraph) PoolAnalytics(ctx context.Context, poolID string, days int) (*entity.PoolAnalytics, error) {
	if days <= 0 {
		days = 7
	}
	var data struct {
		Pool *rawPool `json:"pool"`
	}
	vars := map[string]interface{}{"id": strings.ToLower(poolID), "days": days}
	if err := s.query(ctx, poolQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Pool == nil {
		return nil, fmt.Errorf("%w: pool %s not indexed", apperrors.ErrNotFound, poolID)
	}
	return toAnalytics(data.Pool), nil
}

func (s *Subgraph) query(ctx context.Context, query string, variables, out interface{}) error {
	payload, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("%w: marshal graphql request: %v", apperrors.ErrInternal, err)
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: subgraph request deadline passed", apperrors.ErrTimeout)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	start := time.Now()
	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		s.logger.Debug("Subgraph request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		if errors.Is(err, fasthttp.ErrTimeout) {
			return fmt.Errorf("%w: subgraph request timed out after %v", apperrors.ErrTimeout, timeout)
		}
		return fmt.Errorf("%w: subgraph request: %v", apperrors.ErrExternalServiceFailure, err)
	}
	s.logger.Debug("Subgraph request completed",
		zap.Duration("elapsed", time.Since(start)), zap.Int("statusCode", resp.StatusCode()),
	)

	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("%w: subgraph returned status %d", apperrors.ErrExternalServiceFailure, resp.StatusCode())
	}

	var result GraphQLResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("%w: decode subgraph response: %v", apperrors.ErrExternalServiceFailure, err)
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: graphql errors: %s", apperrors.ErrExternalServiceFailure, strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("%w: decode subgraph data: %v", apperrors.ErrExternalServiceFailure, err)
	}
	return nil
}

func toAnalytics(p *rawPool) *entity.PoolAnalytics {
	out := &entity.PoolAnalytics{
		PoolID:      p.ID,
		Token0:      toToken(p.Token0),
		Token1:      toToken(p.Token1),
		FeeTier:     uint32(p.FeeTier.IntPart()),
		Liquidity:   p.Liquidity,
		Token0Price: p.Token0Price,
		Token1Price: p.Token1Price,
		TVLUSD:      p.TotalValueLockedUSD,
		TVLToken0:   p.TotalValueLockedToken0,
		TVLToken1:   p.TotalValueLockedToken1,
		VolumeUSD:   p.VolumeUSD,
		FeesUSD:     p.FeesUSD,
		History:     make([]entity.PoolDay, 0, len(p.PoolDayData)),
	}
	for _, d := range p.PoolDayData {
		out.History = append(out.History, entity.PoolDay{
			Date:      time.Unix(d.Date, 0).UTC(),
			VolumeUSD: d.VolumeUSD,
			FeesUSD:   d.FeesUSD,
			TVLUSD:    d.TVLUSD,
		})
	}
	if len(out.History) > 0 {
		out.Volume24hUSD = out.History[0].VolumeUSD
		out.Fees24hUSD = out.History[0].FeesUSD
	}
	if out.TVLUSD.IsPositive() {
		out.APR = out.Fees24hUSD.Mul(daysPerYear).Div(out.TVLUSD).Shift(2).Round(2)
	}
	return out
}

func toToken(t rawToken) entity.PoolToken {
	return entity.PoolToken{Symbol: t.Symbol, Name: t.Name, Decimals: int(t.Decimals.IntPart())}
}
