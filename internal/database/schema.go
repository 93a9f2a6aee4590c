package database

// schema creates the triple table and the counters behind NextIndex. The
// datatype column holds the xsd datatype IRI of a literal, "@id" for an IRI
// object, or "@lang" for a language-tagged string.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS triples (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        subject TEXT NOT NULL,
        predicate TEXT NOT NULL,
        object TEXT NOT NULL,
        datatype TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (subject, predicate, object, datatype)
    )`,

	`CREATE TABLE IF NOT EXISTS counters (
        pattern TEXT PRIMARY KEY,
        value INTEGER NOT NULL
    )`,

	`CREATE INDEX IF NOT EXISTS idx_triples_subject_predicate ON triples(subject, predicate)`,
	`CREATE INDEX IF NOT EXISTS idx_triples_predicate_object ON triples(predicate, object)`,
}
