package store

const schema = `
CREATE TABLE IF NOT EXISTS tenant_settings (
	user_id             TEXT PRIMARY KEY,
	crawl_schedule      TEXT NOT NULL DEFAULT 'daily',
	crawl_enabled       INTEGER NOT NULL DEFAULT 1,
	generation_schedule TEXT NOT NULL DEFAULT 'manual',
	generation_time     TEXT NOT NULL DEFAULT '09:00',
	generation_day      INTEGER NOT NULL DEFAULT 0,
	generation_enabled  INTEGER NOT NULL DEFAULT 0,
	formats             TEXT NOT NULL DEFAULT '[]',
	timezone            TEXT NOT NULL DEFAULT 'UTC',
	profile_context     TEXT NOT NULL DEFAULT '',
	last_crawl_at       INTEGER,
	last_generation_at  INTEGER
);

CREATE TABLE IF NOT EXISTS sources (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	name            TEXT NOT NULL,
	url             TEXT NOT NULL,
	kind            TEXT NOT NULL DEFAULT 'web',
	priority        INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'blocked')),
	last_crawled_at INTEGER,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_user_status ON sources(user_id, status);

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	source_id    TEXT REFERENCES sources(id) ON DELETE SET NULL,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL,
	author       TEXT NOT NULL DEFAULT '',
	published_at INTEGER,
	content_hash TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'parsed',
	created_at   INTEGER NOT NULL,
	UNIQUE (user_id, url),
	UNIQUE (user_id, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_documents_user_created ON documents(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at);

CREATE TABLE IF NOT EXISTS source_materials (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS extractions (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	document_id        TEXT REFERENCES documents(id),
	source_material_id TEXT REFERENCES source_materials(id),
	summary            TEXT NOT NULL,
	key_points         TEXT NOT NULL DEFAULT '[]',
	topics             TEXT NOT NULL DEFAULT '[]',
	model              TEXT NOT NULL DEFAULT '',
	created_at         INTEGER NOT NULL,
	archived_at        INTEGER,
	CHECK ((document_id IS NULL) <> (source_material_id IS NULL)),
	UNIQUE (user_id, document_id),
	UNIQUE (user_id, source_material_id)
);
CREATE INDEX IF NOT EXISTS idx_extractions_user_created ON extractions(user_id, created_at);

CREATE TABLE IF NOT EXISTS assets (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	format        TEXT NOT NULL,
	type          TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'ready', 'published', 'archived')),
	published_url TEXT,
	published_at  INTEGER,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_user_created ON assets(user_id, created_at);

CREATE TABLE IF NOT EXISTS prompt_templates (
	user_id      TEXT NOT NULL,
	template_key TEXT NOT NULL,
	body         TEXT NOT NULL,
	enabled      INTEGER NOT NULL DEFAULT 1,
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (user_id, template_key)
);
`
