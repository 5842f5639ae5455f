package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	yaml "go.yaml.in/yaml/v3"
)

// WriteDocument serializes doc as YAML and replaces the file at path
// atomically (temp file in the same directory, then rename). Only the
// migrate mode writes the config; everything else treats it as read-only.
func WriteDocument(path string, doc *Document) error {
	b, err := EncodeDocument(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// EncodeDocument renders the document as YAML with a stable key order:
// fixed top-level order, hosts sorted, room keys sorted. Re-encoding the
// same document always yields identical bytes.
func EncodeDocument(doc *Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	appendPair := func(m *yaml.Node, key string, val *yaml.Node) {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
	}
	encode := func(v any) (*yaml.Node, error) {
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}

	if doc.Schema != 0 {
		n, err := encode(doc.Schema)
		if err != nil {
			return nil, err
		}
		appendPair(root, "schema", n)
	}
	if doc.Nodename != "" {
		n, err := encode(doc.Nodename)
		if err != nil {
			return nil, err
		}
		appendPair(root, "nodename", n)
	}
	if doc.Threshold != 0 {
		n, err := encode(doc.Threshold)
		if err != nil {
			return nil, err
		}
		appendPair(root, "threshold", n)
	}
	if doc.Local {
		n, err := encode(doc.Local)
		if err != nil {
			return nil, err
		}
		appendPair(root, "local", n)
	}
	if doc.Logging != nil {
		n, err := encodeLogging(doc.Logging)
		if err != nil {
			return nil, err
		}
		appendPair(root, "logging", n)
	}
	if doc.Auth != nil {
		n := &yaml.Node{Kind: yaml.MappingNode}
		ev, err := encode(doc.Auth.Email)
		if err != nil {
			return nil, err
		}
		appendPair(n, "email", ev)
		pv, err := encode(doc.Auth.Password)
		if err != nil {
			return nil, err
		}
		appendPair(n, "password", pv)
		appendPair(root, "auth", n)
	}

	if len(doc.Servers) > 0 {
		servers := &yaml.Node{Kind: yaml.MappingNode}
		for _, host := range doc.hosts() {
			sn, err := encodeServer(doc.Servers[host])
			if err != nil {
				return nil, fmt.Errorf("server %s: %w", host, err)
			}
			appendPair(servers, host, sn)
		}
		appendPair(root, "servers", servers)
	}

	return yaml.Marshal(root)
}

func encodeLogging(l *LoggingDoc) (*yaml.Node, error) {
	n := &yaml.Node{}
	m := map[string]any{}
	if l.Level != "" {
		m["level"] = l.Level
	}
	if l.Console != nil {
		m["console"] = *l.Console
	}
	if l.File != nil {
		fm := map[string]any{"enabled": l.File.Enabled}
		if l.File.Path != "" {
			fm["path"] = l.File.Path
		}
		m["file"] = fm
	}
	if err := n.Encode(m); err != nil {
		return nil, err
	}
	return n, nil
}

func encodeServer(sd ServerDoc) (*yaml.Node, error) {
	srv := &yaml.Node{Kind: yaml.MappingNode}
	id := &yaml.Node{}
	if err := id.Encode(sd.SloshyID); err != nil {
		return nil, err
	}
	srv.Content = append(srv.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "sloshy_id"}, id)

	rooms := &yaml.Node{Kind: yaml.SequenceNode}
	for i := range sd.Rooms {
		rn, err := encodeRoom(&sd.Rooms[i])
		if err != nil {
			return nil, err
		}
		rooms.Content = append(rooms.Content, rn)
	}
	srv.Content = append(srv.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "rooms"}, rooms)
	return srv, nil
}

func encodeRoom(r *RoomDoc) (*yaml.Node, error) {
	type kv struct {
		key string
		val any
	}
	pairs := []kv{{"id", r.ID}}
	if r.Name != "" {
		pairs = append(pairs, kv{"name", r.Name})
	}
	if r.Contact != "" {
		pairs = append(pairs, kv{"contact", r.Contact})
	}
	if r.Threshold != 0 {
		pairs = append(pairs, kv{"threshold", r.Threshold})
	}
	if r.Role != "" {
		pairs = append(pairs, kv{"role", r.Role})
	}
	for _, k := range r.extraKeys() {
		pairs = append(pairs, kv{k, r.Extra[k]})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range pairs {
		v := &yaml.Node{}
		if err := v.Encode(p.val); err != nil {
			return nil, err
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.key}, v)
	}
	return n, nil
}
