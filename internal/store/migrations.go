package store

import (
	"fmt"

	"github.com/habitnation/habitnation/internal/store/dialect"
	"github.com/habitnation/habitnation/internal/store/migrate"
)

// Migrations returns the schema history for the dialect. Calendar days
// are stored as YYYY-MM-DD text and JSON documents as text so the same
// queries run unchanged on every supported database.
func Migrations(d dialect.Dialect) []*migrate.Migration {
	ts := d.Timestamp()

	return []*migrate.Migration{
		{
			Version: 1,
			Name:    "create_users",
			Up: fmt.Sprintf(`
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	xp INTEGER NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 1,
	streak INTEGER NOT NULL DEFAULT 0,
	longest_streak INTEGER NOT NULL DEFAULT 0,
	last_active_on TEXT,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	created_at %[1]s NOT NULL,
	updated_at %[1]s NOT NULL,
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_email_key UNIQUE (email)
);
CREATE INDEX idx_users_xp ON users (xp DESC, level DESC);
`, ts),
			Down: `DROP TABLE users;`,
		},
		{
			Version: 2,
			Name:    "create_habits",
			Up: fmt.Sprintf(`
CREATE TABLE habits (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT 'Other',
	frequency TEXT NOT NULL DEFAULT 'daily',
	schedule TEXT NOT NULL,
	time_of_day TEXT NOT NULL DEFAULT 'anytime',
	streak INTEGER NOT NULL DEFAULT 0,
	longest_streak INTEGER NOT NULL DEFAULT 0,
	total_completions INTEGER NOT NULL DEFAULT 0,
	last_completed_on TEXT,
	xp_value INTEGER NOT NULL DEFAULT 10,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at %[1]s NOT NULL,
	updated_at %[1]s NOT NULL
);
CREATE INDEX idx_habits_user ON habits (user_id, created_at);
`, ts),
			Down: `DROP TABLE habits;`,
		},
		{
			Version: 3,
			Name:    "create_habit_completions",
			Up: fmt.Sprintf(`
CREATE TABLE habit_completions (
	id TEXT PRIMARY KEY,
	habit_id TEXT NOT NULL REFERENCES habits (id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	completed_on TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	xp_awarded INTEGER NOT NULL DEFAULT 0,
	completed_at %[1]s NOT NULL,
	CONSTRAINT habit_completions_habit_day_key UNIQUE (habit_id, completed_on)
);
CREATE INDEX idx_habit_completions_user ON habit_completions (user_id, completed_on);
`, ts),
			Down: `DROP TABLE habit_completions;`,
		},
		{
			Version: 4,
			Name:    "create_achievements",
			Up: fmt.Sprintf(`
CREATE TABLE achievements (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	xp_reward INTEGER NOT NULL DEFAULT 100,
	icon TEXT NOT NULL,
	category TEXT NOT NULL,
	requirements TEXT NOT NULL DEFAULT '{}',
	rule TEXT NOT NULL DEFAULT '',
	created_at %[1]s NOT NULL,
	CONSTRAINT achievements_name_key UNIQUE (name)
);
CREATE TABLE user_achievements (
	user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	achievement_id TEXT NOT NULL REFERENCES achievements (id) ON DELETE CASCADE,
	earned_at %[1]s NOT NULL,
	PRIMARY KEY (user_id, achievement_id)
);
`, ts),
			Down: `DROP TABLE user_achievements; DROP TABLE achievements;`,
		},
		{
			Version: 5,
			Name:    "create_jobs",
			Up: fmt.Sprintf(`
CREATE TABLE jobs (
	id TEXT PRIMARY KEY,
	queue TEXT NOT NULL,
	type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 50,
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 3,
	error TEXT,
	created_at %[1]s NOT NULL,
	run_at %[1]s NOT NULL,
	started_at %[1]s,
	completed_at %[1]s,
	locked_by TEXT,
	locked_at %[1]s
);
CREATE INDEX idx_jobs_dequeue ON jobs (queue, status, run_at);
`, ts),
			Down: `DROP TABLE jobs;`,
		},
	}
}
