//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
//
// Run bookkeeping lives in RunMark nodes attached to CodeNodes by MARKS
// edges, one mark per (run, node). Documentation lives in Doc nodes
// attached by DESCRIBES edges.
type KuzuStore struct {
	mu   sync.Mutex // serializes statements on the single connection
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS CodeNode(
		id STRING,
		name STRING,
		kind STRING,
		labels STRING,
		path STRING,
		source STRING,
		start_line INT64,
		end_line INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Doc(
		id STRING,
		run_id STRING,
		content STRING,
		source_id STRING,
		source_path STRING,
		source_name STRING,
		source_labels STRING,
		info_type STRING,
		child_count INT64,
		metadata STRING,
		created_at STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS RunMark(
		id SERIAL,
		run_id STRING,
		status STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS CONTAINS(FROM CodeNode TO CodeNode)`,
	`CREATE REL TABLE IF NOT EXISTS CALLS(FROM CodeNode TO CodeNode)`,
	`CREATE REL TABLE IF NOT EXISTS DESCRIBES(FROM Doc TO CodeNode)`,
	`CREATE REL TABLE IF NOT EXISTS MARKS(FROM RunMark TO CodeNode)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddNode inserts a CodeNode.
func (s *KuzuStore) AddNode(_ context.Context, node Node) error {
	if node.ID == "" {
		return fmt.Errorf("kuzu: add node: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(
		`CREATE (n:CodeNode {
			id: $id,
			name: $name,
			kind: $kind,
			labels: $labels,
			path: $path,
			source: $source,
			start_line: $sl,
			end_line: $el
		})`,
		map[string]any{
			"id":     node.ID,
			"name":   node.Name,
			"kind":   string(node.Kind),
			"labels": joinLabels(node.Labels),
			"path":   node.Path,
			"source": node.Source,
			"sl":     int64(node.StartLine),
			"el":     int64(node.EndLine),
		},
	)
}

// AddEdge inserts a relationship edge between two nodes.
// The Cypher statement is chosen based on the EdgeKind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	cypher, err := edgeCypher(edge.Kind)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	})
}

// edgeCypher returns the MATCH-CREATE Cypher for the given edge kind.
func edgeCypher(kind EdgeKind) (string, error) {
	switch kind {
	case EdgeKindContains:
		return `MATCH (a:CodeNode {id: $src}), (b:CodeNode {id: $dst})
				CREATE (a)-[:CONTAINS]->(b)`, nil
	case EdgeKindCalls:
		return `MATCH (a:CodeNode {id: $src}), (b:CodeNode {id: $dst})
				CREATE (a)-[:CALLS]->(b)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
}

// ---------- Read operations ----------

// nodeColumns is the RETURN list decoded by rowToNode.
const nodeColumns = "n.id, n.name, n.kind, n.labels, n.path, n.source, n.start_line, n.end_line"

// docColumns is the RETURN list decoded by rowToArtifact.
const docColumns = `d.id, d.run_id, d.content, d.source_id, d.source_path, d.source_name,
	d.source_labels, d.info_type, d.child_count, d.metadata, d.created_at`

// GetNode retrieves a single CodeNode by id, or returns nil if not found.
func (s *KuzuStore) GetNode(_ context.Context, id string) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query(
		"MATCH (n:CodeNode {id: $id}) RETURN "+nodeColumns,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	n := rowToNode(rows[0])
	return &n, nil
}

// GetArtifact returns the current Doc describing a node, or nil.
func (s *KuzuStore) GetArtifact(_ context.Context, nodeID string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query(
		"MATCH (d:Doc)-[:DESCRIBES]->(:CodeNode {id: $id}) RETURN "+docColumns+" LIMIT 1",
		map[string]any{"id": nodeID},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	a, err := rowToArtifact(rows[0])
	if err != nil {
		return nil, fmt.Errorf("kuzu: get artifact: %w", err)
	}
	return &a, nil
}

// Nodes returns every CodeNode ordered by id.
func (s *KuzuStore) Nodes(_ context.Context) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query("MATCH (n:CodeNode) RETURN "+nodeColumns+" ORDER BY n.id", nil)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToNode(r))
	}
	return out, nil
}

// Edges returns all CONTAINS and CALLS edges.
func (s *KuzuStore) Edges(_ context.Context) ([]Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type relQuery struct {
		cypher string
		kind   EdgeKind
	}
	queries := []relQuery{
		{"MATCH (a:CodeNode)-[:CONTAINS]->(b:CodeNode) RETURN a.id, b.id", EdgeKindContains},
		{"MATCH (a:CodeNode)-[:CALLS]->(b:CodeNode) RETURN a.id, b.id", EdgeKindCalls},
	}
	var edges []Edge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     q.kind,
			})
		}
	}
	return edges, nil
}

// Artifacts returns every Doc ordered by source path and id.
func (s *KuzuStore) Artifacts(_ context.Context) ([]Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query("MATCH (d:Doc) RETURN "+docColumns+" ORDER BY d.source_path, d.source_id", nil)
	if err != nil {
		return nil, err
	}
	out := make([]Artifact, 0, len(rows))
	for _, r := range rows {
		a, err := rowToArtifact(r)
		if err != nil {
			return nil, fmt.Errorf("kuzu: list artifacts: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Stats returns counts of nodes, edges, and docs.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, err := s.count("MATCH (n:CodeNode) RETURN count(n)", nil)
	if err != nil {
		return nil, err
	}
	docs, err := s.count("MATCH (d:Doc) RETURN count(d)", nil)
	if err != nil {
		return nil, err
	}
	edges := 0
	for _, t := range []string{"CONTAINS", "CALLS"} {
		// Table name is a fixed internal constant, not user input.
		n, err := s.count(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t), nil)
		if err != nil {
			return nil, err
		}
		edges += n
	}
	return &GraphStats{
		NodeCount:     nodes,
		EdgeCount:     edges,
		ArtifactCount: docs,
	}, nil
}

// ---------- Gateway ----------

// InitRun walks the subgraph reachable from rootID breadth-first. The
// RunMark table doubles as the visited set, so only the current frontier
// is held in memory.
func (s *KuzuStore) InitRun(_ context.Context, rootID, runID string, overwrite bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query("MATCH (n:CodeNode {id: $id}) RETURN n.id", map[string]any{"id": rootID})
	if err != nil {
		return 0, fmt.Errorf("kuzu: init run: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("kuzu: init run: %w: %s", ErrNodeNotFound, rootID)
	}
	marked, err := s.count(
		"MATCH (m:RunMark) WHERE m.run_id = $run RETURN count(m)",
		map[string]any{"run": runID},
	)
	if err != nil {
		return 0, fmt.Errorf("kuzu: init run: %w", err)
	}
	if marked > 0 {
		return 0, fmt.Errorf("kuzu: init run: run %s already initialized", runID)
	}

	pending := 0
	err = s.tx(func() error {
		if err := s.mark(runID, rootID, StatusInProgress); err != nil {
			return err
		}
		frontier := []string{rootID}
		for len(frontier) > 0 {
			var next []string
			for _, id := range frontier {
				children, err := s.query(
					`MATCH (p:CodeNode {id: $id})-[:CONTAINS|CALLS]->(c:CodeNode)
					 WHERE NOT EXISTS { MATCH (c)<-[:MARKS]-(m:RunMark) WHERE m.run_id = $run }
					 OPTIONAL MATCH (d:Doc)-[:DESCRIBES]->(c)
					 RETURN c.id, count(d)`,
					map[string]any{"id": id, "run": runID},
				)
				if err != nil {
					return err
				}
				for _, r := range children {
					cid := toString(r[0])
					st := StatusPending
					if toInt(r[1]) > 0 && !overwrite {
						st = StatusCompleted
					}
					if err := s.mark(runID, cid, st); err != nil {
						return err
					}
					if st == StatusPending {
						pending++
					}
					next = append(next, cid)
				}
			}
			frontier = next
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("kuzu: init run: %w", err)
	}
	return pending, nil
}

// PendingLeaves claims pending nodes without outgoing CONTAINS or CALLS edges.
func (s *KuzuStore) PendingLeaves(_ context.Context, runID string, limit int) ([]WorkItem, error) {
	return s.claim(runID, limit,
		`NOT EXISTS { MATCH (n)-[:CONTAINS|CALLS]->(:CodeNode) }`,
		false,
	)
}

// ReadyParents claims pending nodes whose children are all settled: each
// child is completed in this run or carries no mark for it.
func (s *KuzuStore) ReadyParents(_ context.Context, runID string, limit int) ([]WorkItem, error) {
	return s.claim(runID, limit,
		`EXISTS { MATCH (n)-[:CONTAINS|CALLS]->(:CodeNode) }
		 AND NOT EXISTS {
			MATCH (n)-[:CONTAINS|CALLS]->(:CodeNode)<-[:MARKS]-(cm:RunMark)
			WHERE cm.run_id = $run AND cm.status <> 'completed'
		 }`,
		true,
	)
}

// RemainingPendingFunctions claims pending function-like nodes regardless
// of child state.
func (s *KuzuStore) RemainingPendingFunctions(_ context.Context, runID string, limit int) ([]WorkItem, error) {
	return s.claim(runID, limit,
		`(n.kind = 'function' OR n.kind = 'method')`,
		true,
	)
}

// RootItem returns the root with its available child descriptions.
func (s *KuzuStore) RootItem(_ context.Context, runID, rootID string) (*WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query(
		`MATCH (n:CodeNode {id: $id})
		 OPTIONAL MATCH (d:Doc)-[:DESCRIBES]->(n)
		 RETURN `+nodeColumns+`, count(d)`,
		map[string]any{"id": rootID},
	)
	if err != nil {
		return nil, fmt.Errorf("kuzu: root item: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("kuzu: root item: %w: %s", ErrNodeNotFound, rootID)
	}
	item := WorkItem{Node: rowToNode(rows[0])}
	item.Documented = toInt(rows[0][8]) > 0
	if err := s.attachChildren(runID, &item); err != nil {
		return nil, fmt.Errorf("kuzu: root item: %w", err)
	}
	return &item, nil
}

// SaveArtifacts writes all artifacts in one transaction. Each write
// replaces any earlier Doc for the node, creates the new Doc with its
// DESCRIBES edge, and completes the node's RunMark.
func (s *KuzuStore) SaveArtifacts(_ context.Context, runID string, artifacts []Artifact) (int, error) {
	if len(artifacts) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	err := s.tx(func() error {
		for _, a := range artifacts {
			id := ArtifactID(runID, a.SourceID)
			existing, err := s.count(
				"MATCH (d:Doc {id: $id}) RETURN count(d)",
				map[string]any{"id": id},
			)
			if err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			meta, err := json.Marshal(a.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata for %s: %w", a.SourceID, err)
			}
			if err := s.exec(
				"MATCH (d:Doc)-[:DESCRIBES]->(:CodeNode {id: $sid}) DETACH DELETE d",
				map[string]any{"sid": a.SourceID},
			); err != nil {
				return err
			}
			if err := s.exec(
				`MATCH (n:CodeNode {id: $sid})
				 CREATE (d:Doc {
					id: $id,
					run_id: $run,
					content: $content,
					source_id: $sid,
					source_path: $spath,
					source_name: $sname,
					source_labels: $slabels,
					info_type: $info,
					child_count: $cc,
					metadata: $meta,
					created_at: $created
				 })-[:DESCRIBES]->(n)`,
				map[string]any{
					"id":      id,
					"run":     runID,
					"content": a.Content,
					"sid":     a.SourceID,
					"spath":   a.SourcePath,
					"sname":   a.SourceName,
					"slabels": joinLabels(a.SourceLabels),
					"info":    string(a.InfoType),
					"cc":      int64(a.ChildCount),
					"meta":    string(meta),
					"created": a.CreatedAt.UTC().Format(time.RFC3339Nano),
				},
			); err != nil {
				return err
			}
			if err := s.exec(
				`MATCH (m:RunMark)-[:MARKS]->(:CodeNode {id: $sid})
				 WHERE m.run_id = $run
				 SET m.status = 'completed'`,
				map[string]any{"sid": a.SourceID, "run": runID},
			); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("kuzu: save artifacts: %w", err)
	}
	return written, nil
}

// HasPending reports whether the run has pending marks left.
func (s *KuzuStore) HasPending(_ context.Context, runID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.count(
		"MATCH (m:RunMark) WHERE m.run_id = $run AND m.status = 'pending' RETURN count(m)",
		map[string]any{"run": runID},
	)
	if err != nil {
		return false, fmt.Errorf("kuzu: has pending: %w", err)
	}
	return n > 0, nil
}

// ClearRun deletes every RunMark of the run.
func (s *KuzuStore) ClearRun(_ context.Context, runID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	params := map[string]any{"run": runID}
	n, err := s.count("MATCH (m:RunMark) WHERE m.run_id = $run RETURN count(m)", params)
	if err != nil {
		return 0, fmt.Errorf("kuzu: clear run: %w", err)
	}
	if err := s.exec("MATCH (m:RunMark) WHERE m.run_id = $run DETACH DELETE m", params); err != nil {
		return 0, fmt.Errorf("kuzu: clear run: %w", err)
	}
	return n, nil
}

// claim selects up to limit pending nodes of the run matching cond (a
// Cypher predicate over n), flips their marks to in_progress, and returns
// them. With withChildren set, completed children's descriptions are
// attached to each item.
func (s *KuzuStore) claim(runID string, limit int, cond string, withChildren bool) ([]WorkItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query(
		`MATCH (m:RunMark)-[:MARKS]->(n:CodeNode)
		 WHERE m.run_id = $run AND m.status = 'pending' AND `+cond+`
		 WITH m, n ORDER BY n.id LIMIT $lim
		 SET m.status = 'in_progress'
		 RETURN `+nodeColumns,
		map[string]any{"run": runID, "lim": int64(limit)},
	)
	if err != nil {
		return nil, fmt.Errorf("kuzu: claim: %w", err)
	}
	items := make([]WorkItem, 0, len(rows))
	for _, r := range rows {
		item := WorkItem{Node: rowToNode(r)}
		if withChildren {
			if err := s.attachChildren(runID, &item); err != nil {
				return nil, fmt.Errorf("kuzu: claim: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// attachChildren counts the item's children and inlines the descriptions
// of those that are settled for the run.
func (s *KuzuStore) attachChildren(runID string, item *WorkItem) error {
	rows, err := s.query(
		`MATCH (p:CodeNode {id: $id})-[r:CONTAINS|CALLS]->(c:CodeNode)
		 OPTIONAL MATCH (cm:RunMark)-[:MARKS]->(c) WHERE cm.run_id = $run
		 OPTIONAL MATCH (d:Doc)-[:DESCRIBES]->(c)
		 RETURN label(r), c.id, c.name, c.kind, c.path, cm.status, d.content`,
		map[string]any{"id": item.Node.ID, "run": runID},
	)
	if err != nil {
		return err
	}
	item.TotalChildren = 0
	item.Children = nil
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		// A child reached by several edges is one child.
		id := toString(r[1])
		if seen[id] {
			continue
		}
		seen[id] = true
		item.TotalChildren++
		if r[5] != nil && Status(toString(r[5])) != StatusCompleted {
			continue
		}
		if r[6] == nil {
			continue
		}
		item.Children = append(item.Children, ChildDescription{
			ID:          id,
			Name:        toString(r[2]),
			Kind:        NodeKind(toString(r[3])),
			Path:        toString(r[4]),
			Relation:    EdgeKind(toString(r[0])),
			Description: toString(r[6]),
		})
	}
	return nil
}

// ---------- Internal helpers ----------

// mark attaches a RunMark with the given status to a node.
func (s *KuzuStore) mark(runID, nodeID string, st Status) error {
	return s.exec(
		`MATCH (n:CodeNode {id: $id})
		 CREATE (m:RunMark {run_id: $run, status: $status})-[:MARKS]->(n)`,
		map[string]any{"id": nodeID, "run": runID, "status": string(st)},
	)
}

// tx runs fn inside an explicit transaction, rolling back on error.
func (s *KuzuStore) tx(fn func() error) error {
	if err := s.exec("BEGIN TRANSACTION", nil); err != nil {
		return err
	}
	if err := fn(); err != nil {
		_ = s.exec("ROLLBACK", nil)
		return err
	}
	return s.exec("COMMIT", nil)
}

// exec runs a Cypher statement that produces no result rows. Statements
// without parameters bypass the prepare step.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := s.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: execute: %w", err)
		}
		res.Close()
		return nil
	}

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string, params map[string]any) (int, error) {
	rows, err := s.query(cypher, params)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToNode converts an 8-column result row into a Node.
// Column order matches nodeColumns.
func rowToNode(r []any) Node {
	return Node{
		ID:        toString(r[0]),
		Name:      toString(r[1]),
		Kind:      NodeKind(toString(r[2])),
		Labels:    splitLabels(toString(r[3])),
		Path:      toString(r[4]),
		Source:    toString(r[5]),
		StartLine: toInt(r[6]),
		EndLine:   toInt(r[7]),
	}
}

// rowToArtifact converts an 11-column result row into an Artifact.
// Column order matches docColumns.
func rowToArtifact(r []any) (Artifact, error) {
	a := Artifact{
		ID:           toString(r[0]),
		RunID:        toString(r[1]),
		Content:      toString(r[2]),
		SourceID:     toString(r[3]),
		SourcePath:   toString(r[4]),
		SourceName:   toString(r[5]),
		SourceLabels: splitLabels(toString(r[6])),
		InfoType:     InfoType(toString(r[7])),
		ChildCount:   toInt(r[8]),
	}
	if meta := toString(r[9]); meta != "" {
		if err := decodeMetadata(meta, &a.Metadata); err != nil {
			return Artifact{}, fmt.Errorf("doc %s: %w", a.ID, err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, toString(r[10])); err == nil {
		a.CreatedAt = t
	}
	return a, nil
}

// decodeMetadata parses the JSON metadata column of a Doc.
func decodeMetadata(raw string, m *ArtifactMetadata) error {
	if err := json.Unmarshal([]byte(raw), m); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}

func joinLabels(labels []string) string {
	return strings.Join(labels, ",")
}

func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
