package classifier

// defaultFilenameRules match the planning portal's usual file naming.
// Patterns run against the lower-cased filename with "_" and "-" replaced
// by spaces.
var defaultFilenameRules = []RuleSpec{
	{Type: "transport_assessment", Filename: []string{`\btransport (assessment|statement)\b`, `\btravel plan\b`, `\bta\b`}},
	{Type: "design_and_access_statement", Filename: []string{`\bdesign (and|&) access\b`, `\bdas\b`, `\bd ?& ?a\b`}},
	{Type: "planning_statement", Filename: []string{`\bplanning statement\b`, `\bsupporting statement\b`}},
	{Type: "heritage_statement", Filename: []string{`\bheritage\b`, `\blisted building\b`}},
	{Type: "flood_risk_assessment", Filename: []string{`\bflood risk\b`, `\bfra\b`, `\bdrainage strategy\b`}},
	{Type: "ecology_report", Filename: []string{`\becolog`, `\bbat survey\b`, `\bbiodiversity\b`, `\bhabitat\b`}},
	{Type: "noise_assessment", Filename: []string{`\bnoise\b`, `\bacoustic\b`}},
	{Type: "arboricultural_report", Filename: []string{`\barboricultur`, `\btree survey\b`, `\baia\b`}},
	{Type: "decision_notice", Filename: []string{`\bdecision( notice)?\b`, `\bapproval notice\b`, `\brefusal\b`}},
	{Type: "application_form", Filename: []string{`\bapplication form\b`, `\bapp form\b`}},
	{Type: "consultation_response", Filename: []string{`\bconsult(ation|ee)\b`, `\bresponse\b`, `\bobjection\b`}},
	{Type: "drawing", Filename: []string{
		`\b(site|location|block|floor|roof) plans?\b`, `\belevations?\b`, `\bsections?\b`, `\bdrawings?\b`, `\bdwg\b`,
	}},
}

// defaultContentRules look for phrases near the start of the text.
var defaultContentRules = []RuleSpec{
	{Type: "decision_notice", Keywords: []string{"notice of decision", "permission is hereby granted", "planning permission is refused"}},
	{Type: "application_form", Keywords: []string{"application for planning permission", "town and country planning (development management procedure)"}},
	{Type: "transport_assessment", Keywords: []string{"transport assessment", "trip generation", "junction capacity"}, MinMatches: 2},
	{Type: "design_and_access_statement", Keywords: []string{"design and access statement"}},
	{Type: "flood_risk_assessment", Keywords: []string{"flood risk assessment", "flood zone", "sequential test"}, MinMatches: 2},
	{Type: "heritage_statement", Keywords: []string{"heritage statement", "heritage asset", "conservation area", "listed building"}, MinMatches: 2},
	{Type: "ecology_report", Keywords: []string{"preliminary ecological appraisal", "protected species", "biodiversity net gain"}},
	{Type: "noise_assessment", Keywords: []string{"noise assessment", "db laeq", "bs 4142"}},
	{Type: "arboricultural_report", Keywords: []string{"arboricultural", "root protection area", "bs 5837"}},
	{Type: "consultation_response", Keywords: []string{"consultation response", "no objection", "consultee"}},
	{Type: "planning_statement", Keywords: []string{"planning statement", "national planning policy framework", "planning balance"}, MinMatches: 2},
}
