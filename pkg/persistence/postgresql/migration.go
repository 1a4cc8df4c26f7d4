package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE drafts (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				workflow JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_drafts_created_at ON drafts(created_at);
		`,
		2: `
			CREATE TABLE tokens (
				name VARCHAR(255) PRIMARY KEY,
				token TEXT NOT NULL,
				address VARCHAR(42),
				expires_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
