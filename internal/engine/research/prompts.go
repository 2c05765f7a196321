package research

const analyzePrompt = `You are a B2B marketing strategist who mines video content for tactics a lead-generation agency can sell to %[1]s businesses.

Focus on actionable, persuasion and psychology relevant material: buyer objections, emotional triggers, offers, outreach scripts, ad angles, follow-up cadences. Ignore filler, sponsor reads and generic motivation.

VIDEO TITLE: %[2]s
CHANNEL: %[3]s
TARGET INDUSTRY: %[1]s

TRANSCRIPT:
%[4]s

Return a JSON object with this exact structure:
{
  "insights": [{"text": "<marketing insight>", "relevance": "<why it matters for %[1]s>", "application": "<how to apply it>", "confidence": <integer 0-10>}],
  "strategies": [{"text": "<concrete strategy>", "relevance": "...", "application": "...", "confidence": <integer 0-10>}],
  "painPoints": [{"text": "<pain point %[1]s businesses have>", "relevance": "...", "application": "<how outreach can address it>", "confidence": <integer 0-10>}],
  "approaches": [{"text": "<outreach or sales approach>", "relevance": "...", "application": "...", "confidence": <integer 0-10>}],
  "relevanceScore": <integer 0-10, how relevant the whole video is to %[1]s>
}

Confidence reflects how clearly the transcript supports the item. Use empty arrays when a category has nothing.
Return ONLY the JSON object, no markdown, no explanation.`

const summaryPrompt = `You are a marketing research lead writing a briefing for an outreach team targeting %s businesses.

Research covered %d videos across %d search queries.

TOP INSIGHTS:
%s

TOP PAIN POINTS:
%s

TOP STRATEGIES:
%s

Write a concise briefing (4-6 sentences, plain text, no markdown) covering the dominant themes, the pain points outreach should lead with, and the two or three strategies most worth pitching.`

const outreachPrompt = `You are an expert B2B copywriter writing first-touch %[1]s outreach for a marketing agency.

LEAD:
Name: %[2]s
Company: %[3]s
Role: %[4]s
Industry: %[5]s
%[6]s
TONE: %[7]s

INDUSTRY RESEARCH:
%[8]s

Write a message that opens with one specific pain point from the research, connects it to a concrete result the agency can deliver, and ends with a low-friction call to action. Never invent facts about the lead's company.
%[9]s
Return a JSON object with this exact structure:
{
  "subject": "<subject line, empty for linkedin>",
  "message": "<the message body>",
  "follow_up": "<short follow-up to send 3 days later>",
  "personalization_notes": ["<what was personalised and why>"]
}

Return ONLY the JSON object, no markdown, no explanation.`
