package network

import "testing"

func TestParseCommandMine(t *testing.T) {
	cmd := parseCommand(`mine "hello"`)
	if cmd.kind != cmdMine || cmd.value != "hello" {
		t.Errorf("got %+v", cmd)
	}

	cmd = parseCommand("mine unquoted")
	if cmd.kind != cmdMine || cmd.value != "unquoted" {
		t.Errorf("got %+v", cmd)
	}

	cmd = parseCommand("mine ")
	if cmd.kind != cmdChat {
		t.Errorf("empty mine payload should fall back to chat, got %+v", cmd)
	}
}

func TestParseCommandGet(t *testing.T) {
	cmd := parseCommand("GET mykey")
	if cmd.kind != cmdGet || cmd.key != "mykey" {
		t.Errorf("got %+v", cmd)
	}
	if c := parseCommand("GET"); c.kind != cmdChat {
		t.Errorf("missing key should fall back to chat, got %+v", c)
	}
	if c := parseCommand("GET a b"); c.kind != cmdChat {
		t.Errorf("extra args should fall back to chat, got %+v", c)
	}
}

func TestParseCommandPut(t *testing.T) {
	cmd := parseCommand("PUT k v")
	if cmd.kind != cmdPut || cmd.key != "k" || cmd.value != "v" {
		t.Errorf("got %+v", cmd)
	}
	if c := parseCommand("PUT k"); c.kind != cmdChat {
		t.Errorf("missing value should fall back to chat, got %+v", c)
	}
}

func TestParseCommandPutProvider(t *testing.T) {
	cmd := parseCommand("PUT_PROVIDER k")
	if cmd.kind != cmdPutProvider || cmd.key != "k" {
		t.Errorf("got %+v", cmd)
	}
}

func TestParseCommandLsPeers(t *testing.T) {
	cmd := parseCommand("ls_peers")
	if cmd.kind != cmdLsPeers || cmd.key != "" {
		t.Errorf("got %+v", cmd)
	}
	cmd = parseCommand("ls_peers somekey")
	if cmd.kind != cmdLsPeers || cmd.key != "somekey" {
		t.Errorf("got %+v", cmd)
	}
}

func TestParseCommandLsBlocks(t *testing.T) {
	cmd := parseCommand("ls_blocks")
	if cmd.kind != cmdLsBlocks {
		t.Errorf("got %+v", cmd)
	}
	if c := parseCommand("ls_blocks extra"); c.kind != cmdChat {
		t.Errorf("extra args should fall back to chat, got %+v", c)
	}
}

func TestParseCommandChatFallback(t *testing.T) {
	cmd := parseCommand("hello world, anyone there?")
	if cmd.kind != cmdChat || cmd.raw != "hello world, anyone there?" {
		t.Errorf("got %+v", cmd)
	}
}
