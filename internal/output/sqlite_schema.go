package output

const graphSchema = `
CREATE TABLE IF NOT EXISTS nodes (
    pid INTEGER NOT NULL,
    id TEXT NOT NULL,
    attrs TEXT NOT NULL,
    PRIMARY KEY (pid, id)
);

CREATE TABLE IF NOT EXISTS threads (
    pid INTEGER NOT NULL,
    os_tid INTEGER NOT NULL,
    pin_tid INTEGER NOT NULL,
    events INTEGER NOT NULL,
    segments INTEGER NOT NULL,
    sentinels INTEGER NOT NULL,
    PRIMARY KEY (pid, os_tid, pin_tid)
);

CREATE TABLE IF NOT EXISTS links (
    pid INTEGER NOT NULL,
    os_tid INTEGER NOT NULL,
    pin_tid INTEGER NOT NULL,
    source INTEGER NOT NULL,
    target INTEGER NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (pid, os_tid, pin_tid, source, target)
);
CREATE INDEX IF NOT EXISTS idx_links_thread ON links(pid, pin_tid);
`
