package services

// alternativeQueries reformulates query for the recursive fallback, most
// specific first: exact phrase, site restricted, then topical suffixes.
func alternativeQueries(query string) []string {
	return []string{
		`"` + query + `"`,
		query + " site:stackoverflow.com",
		query + " site:github.com",
		query + " site:reddit.com",
		query + " tutorial",
		query + " guide",
		query + " documentation",
		query + " example",
	}
}
