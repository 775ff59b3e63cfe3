package sqlite

import "github.com/townql/townql/townql/storage"

const ddlBase = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS documents (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  collection TEXT NOT NULL,
  id         TEXT NOT NULL,
  data_json  TEXT NOT NULL,
  UNIQUE (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, seq);
`

var SQLTemplates = storage.SQL{
	GetMeta:          "SELECT value FROM meta WHERE key = ?1",
	SetMeta:          "INSERT INTO meta(key,value) VALUES(?1,?2) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
	SelectDocuments:  "SELECT id, data_json FROM documents",
	CollectionColumn: "collection",
	UpsertDocument: `INSERT INTO documents(collection, id, data_json) VALUES(?1, ?2, ?3)
		ON CONFLICT(collection, id) DO UPDATE SET data_json=excluded.data_json`,
	CountDocuments:   "SELECT COUNT(*) FROM documents WHERE collection = ?1",
	DeleteCollection: "DELETE FROM documents WHERE collection = ?1",
}
