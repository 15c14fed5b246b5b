package payment

import "math/big"

// BillingTask identifies a billable operation class for base pricing.
type BillingTask string

const (
	TaskAgentChat       BillingTask = "agent_chat"
	TaskMCPToolRead     BillingTask = "mcp_tool_read"
	TaskToolTransaction BillingTask = "tool_transaction"
	TaskImageGenFlux    BillingTask = "image_gen_flux"
	TaskImageGenSDXL    BillingTask = "image_gen_sdxl"
	TaskAudioTTS        BillingTask = "audio_tts"
	TaskAudioASR        BillingTask = "audio_asr"
	TaskVideoGen        BillingTask = "video_gen"
	TaskMemSearch       BillingTask = "mem_search"
	TaskMemAdd          BillingTask = "mem_add"
)

// Base prices per task in token wei (6-decimal stablecoin units).
// For token-metered inference these are authorization floors; the settled
// amount is the metered cost. For non-token tasks the base price stands
// unless the provider returns a measured cost.
var basePrices = map[BillingTask]int64{
	TaskAgentChat:       5000,
	TaskMCPToolRead:     1000,
	TaskToolTransaction: 5000,
	TaskImageGenFlux:    100000,
	TaskImageGenSDXL:    50000,
	TaskAudioTTS:        20000,
	TaskAudioASR:        15000,
	TaskVideoGen:        500000,
	TaskMemSearch:       500,
	TaskMemAdd:          1000,
}

// BasePrice returns the per-call base price for a billing task in token wei.
// Unknown tasks price as TaskAgentChat.
func BasePrice(task BillingTask) *big.Int {
	if price, ok := basePrices[task]; ok {
		return big.NewInt(price)
	}
	return big.NewInt(basePrices[TaskAgentChat])
}
