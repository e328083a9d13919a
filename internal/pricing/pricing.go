// Package pricing recalculates per-model turn cost from raw token counts.
// The subprocess's own reported cost is not trusted for third-party
// providers routed through the CLI, so internal/parser always recomputes
// total_cost_usd from this table rather than passing the reported figure
// through.
package pricing

import "strings"

// Rates holds per-million-token USD pricing for one model.
type Rates struct {
	Input      float64
	Output     float64
	CacheRead  float64
	CacheWrite float64
}

// claudeRates derives cache pricing from the standard Anthropic ratio:
// cache read is 10% of input, cache write is 125% of input.
func claudeRates(input, output float64) Rates {
	return Rates{Input: input, Output: output, CacheRead: input * 0.1, CacheWrite: input * 1.25}
}

// For returns the pricing rates for model, matching by substring against
// known Claude and third-party provider model names, falling back to
// Sonnet pricing for anything unrecognized.
func For(model string) Rates {
	m := strings.ToLower(model)

	switch {
	case contains(m, "opus-4-6", "opus-4-5", "opus-4.5", "opus-4.6"):
		return claudeRates(5.0, 25.0)
	case contains(m, "opus"):
		return claudeRates(15.0, 75.0)
	case contains(m, "haiku"):
		return claudeRates(0.80, 4.0)
	case contains(m, "sonnet"):
		return claudeRates(3.0, 15.0)
	case contains(m, "gpt-4o"):
		return claudeRates(2.5, 10.0)
	case contains(m, "gpt-4"):
		return claudeRates(10.0, 30.0)
	case contains(m, "o1", "o3"):
		return claudeRates(15.0, 60.0)
	case contains(m, "deepseek"):
		return Rates{0.28, 0.42, 0.028, 0.28}
	case contains(m, "kimi-k2.5", "kimi-k25"):
		return Rates{0.60, 3.0, 0.10, 0.60}
	case contains(m, "kimi"):
		return Rates{0.60, 2.50, 0.15, 0.60}
	case contains(m, "glm-4.5-flash", "glm-4-5-flash"):
		return Rates{0, 0, 0, 0}
	case contains(m, "glm-4.5-air", "glm-4-5-air"):
		return Rates{0.20, 1.10, 0.03, 0.20}
	case contains(m, "glm-4.7", "glm-4-7", "glm"):
		return Rates{0.60, 2.20, 0.11, 0.60}
	case contains(m, "qwen3-max"):
		return Rates{1.20, 6.0, 0.12, 1.20}
	case contains(m, "qwen3.5-plus", "qwen35-plus"):
		return Rates{0.40, 2.40, 0.04, 0.40}
	case contains(m, "qwen-plus"):
		return Rates{0.40, 1.20, 0.04, 0.40}
	case contains(m, "qwen-flash", "qwen"):
		return Rates{0.05, 0.40, 0.005, 0.05}
	case contains(m, "doubao"):
		return Rates{0.17, 1.11, 0.034, 0.17}
	case contains(m, "minimax-m2.5-highspeed"):
		return Rates{0.30, 2.40, 0.03, 0.30}
	case contains(m, "minimax"):
		return Rates{0.30, 1.20, 0.03, 0.30}
	case contains(m, "mimo"):
		return Rates{0.10, 0.30, 0.01, 0.10}
	default:
		return claudeRates(3.0, 15.0)
	}
}

func contains(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// EstimateCost returns the USD cost for the given token counts against
// model's rates.
func EstimateCost(model string, inputTokens, outputTokens, cacheReadTokens, cacheWriteTokens int) float64 {
	r := For(model)
	return (float64(inputTokens)*r.Input +
		float64(outputTokens)*r.Output +
		float64(cacheReadTokens)*r.CacheRead +
		float64(cacheWriteTokens)*r.CacheWrite) / 1_000_000.0
}
