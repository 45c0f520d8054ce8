package service

import (
	"fmt"
)

const AdvisorPersona = "You're a crypto advisor."

// EigenLayerTemplate is the structured answer used when the advisor reply lacks structure
const EigenLayerTemplate = `1. Best Tokens for Eigen Layer Restaking:
- ETH - Primary asset for Eigen Layer with established security - Est. yield: 5-7%
- Liquid staking tokens (stETH, rETH) - Compatible with restaking protocols - Est. yield: 6-8%
- MATIC - Potential integration with Eigen Layer - Est. yield: 8-10%

2. Analysis of Each Option:
- ETH: Native asset for Eigen Layer with strongest security profile and widespread adoption.
- Liquid staking tokens: Provide additional liquidity while participating in restaking.
- MATIC: Offers higher potential yields but with increased risk profile.

3. Key Risks:
- Regulatory risks: Increasing scrutiny of staking services.
- Technical risks: Smart contract vulnerabilities and potential slashing events.
- Market risks: Volatility affecting underlying token values.

4. Strategic Recommendations:
- Current market conditions favor gradual entry with dollar-cost averaging.
- Limit Eigen Layer exposure to 15-20% of crypto holdings.
- Position for 2-3 year horizon to maximize benefits through market cycles.`

const highDemandNote = "Note: This is a fallback response as the AI service is currently experiencing high demand."

// AdvisorFallbackText is returned to callers whenever the advisor cannot answer
const AdvisorFallbackText = EigenLayerTemplate + "\n\n" + highDemandNote

// CommentatorFallbackText is only used when the commentator runs with the fallback policy
const CommentatorFallbackText = "Market's quiet rn. Stacking and staking while we wait, lfg."

const commentaryPromptFormat = `You're a crypto enthusiast in a Telegram group. Based on these recent messages:

%s

Share your thoughts about crypto opportunities, but keep it natural and casual. Use slang like ngmi, gmgm or lfg. Don't repeat what the messages say, just give your opinion. Break your response into 1-2 short sentences, each ending with a period. Make it sound conversational and use some crypto slang, but don't overdo it. Focus on:
- Potential gains
- Staking opportunities
- Market trends
- Risk factors

Remember to keep each sentence short and natural, like real Telegram messages.`

// AdvisorPrompt asks for the four-point structured analysis
func AdvisorPrompt(question, context string) string {
	return fmt.Sprintf(`%s Based on this context:

%s

Question: %s

Provide a structured analysis with these 4 points:
1. Best tokens for Eigen Layer restaking (list 3-4 with reasons)
2. Brief analysis of each token option
3. Key risks to consider
4. Strategic recommendations

Keep your response concise but informative.`, AdvisorPersona, context, question)
}

// CommentaryPrompt asks for casual group commentary on recent messages
func CommentaryPrompt(recentMessages string) string {
	return fmt.Sprintf(commentaryPromptFormat, recentMessages)
}
