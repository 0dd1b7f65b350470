package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id                   TEXT PRIMARY KEY,
				name                 TEXT NOT NULL,
				description          TEXT NOT NULL DEFAULT '',
				priority             TEXT NOT NULL DEFAULT 'medium',
				automation_enabled   BOOLEAN NOT NULL DEFAULT TRUE,
				total_estimated_time INTEGER NOT NULL DEFAULT 0,
				steps                JSONB NOT NULL DEFAULT '[]',
				created_at           TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at           TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at           TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_deleted_at ON workflows (deleted_at);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS clinical_records (
				episode_id TEXT PRIMARY KEY,
				payload    JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
