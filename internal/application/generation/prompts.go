package generation

import (
	"fmt"
	"strings"

	"pov-canvas-api/internal/domain/entity"
)

// 各构件类型的系统提示词
const (
	systemPromptWhitepaper     = "You are a senior analyst who writes enterprise-grade whitepapers."
	systemPromptMarketingAsset = "You are a marketing writer generating concise, compelling content."
	systemPromptColdEmail      = "You are an expert sales professional who writes compelling, personalized cold call emails."
	systemPromptSalesScript    = "You are a sales coach writing practical scripts."
	systemPromptEditor         = "You are a careful editor. You revise business documents exactly as instructed and return the complete revised document, nothing else."
)

// BuildGeneratePrompt 按构件类型构造 (system, user) 提示词
func BuildGeneratePrompt(in GenerateInput) (string, string, error) {
	switch in.ArtifactType {
	case entity.ArtifactTypeWhitepaper:
		return systemPromptWhitepaper, buildWhitepaperPrompt(in), nil
	case entity.ArtifactTypeMarketingAsset:
		return systemPromptMarketingAsset, buildMarketingAssetPrompt(in), nil
	case entity.ArtifactTypeColdEmail:
		return systemPromptColdEmail, buildColdEmailPrompt(in), nil
	case entity.ArtifactTypeSalesScript:
		return systemPromptSalesScript, buildSalesScriptPrompt(in), nil
	default:
		return "", "", fmt.Errorf("unsupported artifact type: %s", in.ArtifactType)
	}
}

// BuildEditPrompt 构造指令式编辑的 (system, user) 提示词。
// 要求模型返回修订后的完整全文，以便整体作为一个新版本提交。
func BuildEditPrompt(in EditInput) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Below is the current full text of a %s titled %q.\n\n", artifactTypeLabel(in.ArtifactType), in.CurrentTitle)
	b.WriteString("--- DOCUMENT START ---\n")
	b.WriteString(in.CurrentContent)
	b.WriteString("\n--- DOCUMENT END ---\n\n")
	fmt.Fprintf(&b, "Apply the following instruction to the document:\n%s\n\n", in.Instruction)
	b.WriteString("Return the complete revised document. Do not add commentary, explanations, or markers.")
	return systemPromptEditor, b.String()
}

func artifactTypeLabel(t entity.ArtifactType) string {
	switch t {
	case entity.ArtifactTypeWhitepaper:
		return "whitepaper"
	case entity.ArtifactTypeMarketingAsset:
		return "marketing asset"
	case entity.ArtifactTypeColdEmail:
		return "cold outreach email"
	case entity.ArtifactTypeSalesScript:
		return "sales script"
	default:
		return "document"
	}
}

func buildWhitepaperPrompt(in GenerateInput) string {
	var b strings.Builder
	b.WriteString("You are an expert enterprise analyst. Write a Classic White Paper in a clear, executive-ready style.\n\n")
	b.WriteString("Context:\n")
	writeContext(&b, in)
	fmt.Fprintf(&b, "- Selected Outcomes:\n%s\n", outcomesBlock(in.SelectedOutcomes, "(Use the most relevant analysis outcomes as evidence)"))
	fmt.Fprintf(&b, "- Custom Instructions: %s\n\n", orNone(in.CustomInstructions))

	b.WriteString("Output requirements (use Markdown headings exactly as below):\n")
	fmt.Fprintf(&b, "# %s\n\n", in.Title)
	b.WriteString("## Executive Summary\nProvide a tight summary tailored for executives.\n\n")
	b.WriteString("## 1. The Strategic Challenge\nDescribe the decision context, constraints, and risks (1-2 paragraphs).\n\n")
	b.WriteString("## 2. Why This Matters Now\nExplain urgency, market dynamics, and competitive pressure.\n\n")
	fmt.Fprintf(&b, "## 3. Three Strategic Outcomes for %s\n", in.TargetCustomerName)
	b.WriteString("- Outcome 1: name and 2-3 supporting points using selected outcomes.\n")
	b.WriteString("- Outcome 2: name and 2-3 supporting points using selected outcomes.\n")
	b.WriteString("- Outcome 3: name and 2-3 supporting points using selected outcomes.\n\n")
	b.WriteString("## 4. The Human Dimension\nAddress confidence, relief, pride, and adoption considerations.\n\n")
	b.WriteString("## 5. Proposed Approach\nLay out a pragmatic approach (phases or streams) grounded in the analysis.\n\n")
	b.WriteString("## 6. Evidence & Outcomes\nTie recommendations to the analysis outcomes; be specific.\n\n")
	b.WriteString("## 7. Strategic Alignment\nMap to the customer's mission and KPIs.\n\n")
	b.WriteString("## Conclusion & Call to Action\nClose with next steps suitable for executive sign-off.\n\n")
	b.WriteString("Style:\n")
	b.WriteString("- Be concise but authoritative. Use data points from the analysis where relevant.\n")
	b.WriteString("- Avoid fluff. Keep jargon minimal. Prefer active voice.\n")
	return b.String()
}

func buildMarketingAssetPrompt(in GenerateInput) string {
	assetKind := in.Meta.AssetKind
	if assetKind == "" {
		assetKind = entity.AssetKindOnePager
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s titled: %s\n", assetKind, in.Title)
	b.WriteString("Context:\n")
	writeContext(&b, in)
	fmt.Fprintf(&b, "- Selected Outcomes:\n%s\n", outcomesBlock(in.SelectedOutcomes, "(Use the most relevant analysis outcomes)"))
	fmt.Fprintf(&b, "- Custom Instructions: %s\n\n", orNone(in.CustomInstructions))

	b.WriteString("Requirements:\n")
	b.WriteString("- Return the content only, ready to paste.\n")
	b.WriteString("- Keep it concise and compelling, suitable for go-to-market use.\n")
	b.WriteString("- Include specific hooks or CTAs when appropriate.\n")
	return b.String()
}

func buildColdEmailPrompt(in GenerateInput) string {
	recipientInfo := ""
	if in.Meta.RecipientName != "" {
		recipientInfo = "Recipient: " + in.Meta.RecipientName
	}
	if in.Meta.RecipientCompany != "" {
		recipientInfo += " at " + in.Meta.RecipientCompany
	}
	if in.Meta.RecipientEmail != "" {
		recipientInfo += fmt.Sprintf(" (%s)", in.Meta.RecipientEmail)
	}

	greetingName := in.Meta.RecipientName
	if greetingName == "" {
		greetingName = "there"
	}

	var b strings.Builder
	b.WriteString("Write a cold outreach email that demonstrates deep understanding through specific insights, not generic claims.\n\n")
	b.WriteString("Context:\n")
	writeContext(&b, in)
	if recipientInfo != "" {
		fmt.Fprintf(&b, "- %s\n", recipientInfo)
	}
	fmt.Fprintf(&b, "\nSelected Analysis Outcomes:\n%s\n\n", outcomesBlock(in.SelectedOutcomes, "(none selected)"))
	fmt.Fprintf(&b, "Instructions: %s\n\n", orNone(in.CustomInstructions))

	b.WriteString("Requirements (under 180 words):\n")
	b.WriteString("- Subject: Lead with specific value/outcome, not generic intro\n")
	fmt.Fprintf(&b, "- Greeting: \"Hi %s,\"\n", greetingName)
	fmt.Fprintf(&b, "- Hook: Open with a specific insight about %s's situation (reference actual challenges/context when available)\n", in.TargetCustomerName)
	b.WriteString("- Bridge: One sentence connecting their challenge to your solution\n")
	b.WriteString("- Value bullets: Two concrete outcomes from the analysis that directly address their context\n")
	fmt.Fprintf(&b, "- Proof: One sentence making the value tangible for %s specifically\n", in.TargetCustomerName)
	b.WriteString("- CTA: Request a 20-minute conversation next week\n")
	b.WriteString("- Signature: [Your Name] / [Your Title] / [Your Contact] / [Website]\n\n")
	b.WriteString("Style: Specific over generic. Reference actual company context when available. Avoid \"solutions,\" \"leverage,\" \"synergies.\" Use concrete language.\n\n")
	b.WriteString("Return JSON:\n")
	b.WriteString("{\n")
	b.WriteString("  \"subject\": \"Specific value statement (8-12 words)\",\n")
	b.WriteString("  \"body\": \"Complete email with concrete insights and signature placeholders\"\n")
	b.WriteString("}\n")
	return b.String()
}

func buildSalesScriptPrompt(in GenerateInput) string {
	scenario := in.Meta.Scenario
	if scenario == "" {
		scenario = entity.ScenarioColdCall
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a sales coach. Write a %s sales script titled: %s with the structure and tone below.\n\n", scenario, in.Title)
	b.WriteString("Context:\n")
	writeContext(&b, in)
	fmt.Fprintf(&b, "- Selected Outcomes:\n%s\n", outcomesBlock(in.SelectedOutcomes, "(Use the most relevant analysis outcomes)"))
	fmt.Fprintf(&b, "- Custom Instructions: %s\n\n", orNone(in.CustomInstructions))

	b.WriteString("Output format (use these exact sections and casing):\n")
	b.WriteString("Sales Script Version 1\n")
	fmt.Fprintf(&b, "%s\n", in.Title)
	b.WriteString("TARGET AUDIENCE: derive from roles and buyer context\n")
	fmt.Fprintf(&b, "SPEAKER: %s sales consultant\n", in.VendorName)
	b.WriteString("ESTIMATED DURATION: 60-120 seconds\n")
	b.WriteString("WORD COUNT: 150-220 words\n\n")
	b.WriteString("Then provide the script content using bracketed cues like [PAUSE], [EMPHASIS] where impactful.\n\n")
	b.WriteString("After the script, include:\n")
	b.WriteString("KEY TALKING POINTS FOR REFERENCE:\n")
	b.WriteString("- Primary pain point: one sentence\n")
	b.WriteString("- Core outcome promised: one sentence\n")
	b.WriteString("- Main differentiator: one sentence\n")
	b.WriteString("- Success metric mentioned: one sentence (tie to analysis evidence when possible)\n\n")
	b.WriteString("Tone:\n")
	b.WriteString("- Credible, specific, and outcome-driven. Avoid generic claims.\n")
	b.WriteString("- Use concrete examples aligned to the analysis when helpful.\n")
	return b.String()
}

func writeContext(b *strings.Builder, in GenerateInput) {
	fmt.Fprintf(b, "- Vendor: %s\n", in.VendorName)
	fmt.Fprintf(b, "- Services: %s\n", in.VendorServices)
	fmt.Fprintf(b, "- Customer: %s\n", in.TargetCustomerName)
	fmt.Fprintf(b, "- Roles: %s\n", strings.Join(in.RoleNames, ", "))
	if in.AdditionalContext != "" {
		fmt.Fprintf(b, "- Additional Context: %s\n", in.AdditionalContext)
	}
}

func outcomesBlock(outcomes []Outcome, fallback string) string {
	if len(outcomes) == 0 {
		return fallback
	}
	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		line := "- " + o.Title
		if o.Summary != "" {
			line += ": " + o.Summary
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
