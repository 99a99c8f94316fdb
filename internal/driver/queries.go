package driver

// Lead nodes keep timestamps as Unix nanoseconds so ORDER BY is numeric.
// email_lower backs the exact-email duplicate lookup.

var IndexQueries = []string{
	"CREATE INDEX ON :Lead(id);",
	"CREATE INDEX ON :Lead(email_lower);",
	"CREATE INDEX ON :Lead(created_at);",
	"CREATE INDEX ON :Stage(id);",
}

const (
	MergeStageQuery = `
		MERGE (s:Stage {id: $id})
		ON CREATE SET s.name = $name, s.sort_order = $sort_order
		RETURN s.id AS id
	`

	ListStagesQuery = `
		MATCH (s:Stage)
		RETURN s.id AS id, s.name AS name, s.sort_order AS sort_order
		ORDER BY s.sort_order ASC
	`

	CreateLeadQuery = `
		CREATE (l:Lead {id: $id})
		SET l.full_name = $full_name,
			l.first_name = $first_name,
			l.last_name = $last_name,
			l.company = $company,
			l.title = $title,
			l.email = $email,
			l.email_lower = $email_lower,
			l.phone = $phone,
			l.website = $website,
			l.address = $address,
			l.notes = $notes,
			l.stage_id = $stage_id,
			l.status = $status,
			l.card_image_path = $card_image_path,
			l.raw_ocr_text = $raw_ocr_text,
			l.dedupe_key = $dedupe_key,
			l.created_at = $created_at,
			l.updated_at = $updated_at
		RETURN l.id AS id
	`

	GetLeadQuery = `
		MATCH (l:Lead {id: $id})
		RETURN properties(l) AS lead
	`

	ListLeadsQuery = `
		MATCH (l:Lead)
		RETURN properties(l) AS lead
		ORDER BY l.created_at DESC
	`

	FindLeadByEmailQuery = `
		MATCH (l:Lead)
		WHERE l.email_lower = $email
		RETURN properties(l) AS lead
		ORDER BY l.created_at DESC
		LIMIT 1
	`

	SearchLeadsByPhoneQuery = `
		MATCH (l:Lead)
		WHERE l.phone CONTAINS $fragment
		RETURN properties(l) AS lead
		ORDER BY l.created_at DESC
		LIMIT $limit
	`

	SearchLeadsByCompanyQuery = `
		MATCH (l:Lead)
		WHERE toLower(l.company) CONTAINS toLower($fragment)
		RETURN properties(l) AS lead
		ORDER BY l.created_at DESC
		LIMIT $limit
	`

	UpdateLeadQuery = `
		MATCH (l:Lead {id: $id})
		SET l.stage_id = coalesce($stage_id, l.stage_id),
			l.status = coalesce($status, l.status),
			l.notes = coalesce($notes, l.notes),
			l.updated_at = $updated_at
		RETURN properties(l) AS lead
	`
)
