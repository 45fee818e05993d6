package sqlite

// Dates are stored as unix milliseconds so ORDER BY date sorts correctly.
const schema = `
CREATE TABLE IF NOT EXISTS emails (
    mailbox       TEXT NOT NULL,
    id            TEXT NOT NULL,
    thread_id     TEXT NOT NULL,
    from_addr     TEXT NOT NULL DEFAULT '',
    from_name     TEXT NOT NULL DEFAULT '',
    to_addrs      TEXT NOT NULL DEFAULT '[]',
    cc_addrs      TEXT NOT NULL DEFAULT '[]',
    subject       TEXT NOT NULL DEFAULT '',
    snippet       TEXT NOT NULL DEFAULT '',
    body_text     TEXT NOT NULL DEFAULT '',
    body_html     TEXT NOT NULL DEFAULT '',
    date          INTEGER NOT NULL,
    is_read       BOOLEAN NOT NULL DEFAULT FALSE,
    is_starred    BOOLEAN NOT NULL DEFAULT FALSE,
    in_reply_to   TEXT NOT NULL DEFAULT '',
    history_id    INTEGER NOT NULL DEFAULT 0,
    size_estimate INTEGER NOT NULL DEFAULT 0,
    attachments   TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (mailbox, id)
);

CREATE TABLE IF NOT EXISTS email_labels (
    mailbox     TEXT NOT NULL,
    email_id    TEXT NOT NULL,
    label_id    TEXT NOT NULL,
    PRIMARY KEY (mailbox, email_id, label_id),
    FOREIGN KEY (mailbox, email_id) REFERENCES emails(mailbox, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS labels (
    mailbox     TEXT NOT NULL,
    id          TEXT NOT NULL,
    name        TEXT NOT NULL,
    type        TEXT NOT NULL DEFAULT 'user',
    color       TEXT NOT NULL DEFAULT '',
    total       INTEGER NOT NULL DEFAULT 0,
    unread      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (mailbox, id)
);

CREATE TABLE IF NOT EXISTS sync_state (
    mailbox     TEXT PRIMARY KEY,
    history_id  INTEGER NOT NULL DEFAULT 0,
    last_sync   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_emails_thread ON emails(mailbox, thread_id);
CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(mailbox, date DESC);
CREATE INDEX IF NOT EXISTS idx_email_labels_label ON email_labels(mailbox, label_id);
`

const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS emails_fts USING fts5(
    subject, body_text, from_addr, from_name, snippet,
    content='emails', content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS emails_ai AFTER INSERT ON emails BEGIN
    INSERT INTO emails_fts(rowid, subject, body_text, from_addr, from_name, snippet)
    VALUES (new.rowid, new.subject, new.body_text, new.from_addr, new.from_name, new.snippet);
END;

CREATE TRIGGER IF NOT EXISTS emails_ad AFTER DELETE ON emails BEGIN
    INSERT INTO emails_fts(emails_fts, rowid, subject, body_text, from_addr, from_name, snippet)
    VALUES ('delete', old.rowid, old.subject, old.body_text, old.from_addr, old.from_name, old.snippet);
END;

CREATE TRIGGER IF NOT EXISTS emails_au AFTER UPDATE ON emails BEGIN
    INSERT INTO emails_fts(emails_fts, rowid, subject, body_text, from_addr, from_name, snippet)
    VALUES ('delete', old.rowid, old.subject, old.body_text, old.from_addr, old.from_name, old.snippet);
    INSERT INTO emails_fts(rowid, subject, body_text, from_addr, from_name, snippet)
    VALUES (new.rowid, new.subject, new.body_text, new.from_addr, new.from_name, new.snippet);
END;
`
