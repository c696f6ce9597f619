package mysql

const createResponsesSQL = `
CREATE TABLE IF NOT EXISTS image_responses (
  url_hash   BINARY(32)   NOT NULL,
  url        TEXT         NOT NULL,
  body       MEDIUMBLOB   NOT NULL,
  created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (url_hash),
  KEY idx_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

// INSERT IGNORE keeps the first body stored for a URL.
const insertResponseSQL = `
INSERT IGNORE INTO image_responses (url_hash, url, body)
VALUES (?, ?, ?)
`

// Rows older than the TTL are treated as absent; Purge deletes them.
const selectResponseSQL = `
SELECT body FROM image_responses
WHERE url_hash = ? AND (? = 0 OR created_at >= NOW() - INTERVAL ? SECOND)
`

const purgeResponsesSQL = `
DELETE FROM image_responses
WHERE created_at < NOW() - INTERVAL ? SECOND
`
