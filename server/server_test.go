package server

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"mini-jsonrpc/message"
	"mini-jsonrpc/protocol"
)

// echoHandler answers every call with the method name as the result.
func echoHandler(_ context.Context, req *message.Request) (any, *message.ErrorObject) {
	return req.Method, nil
}

func startServer(t *testing.T, addr string) *Server {
	t.Helper()
	svr := NewServer()
	svr.Handle("echo", echoHandler)
	go svr.Serve("tcp", addr, "", nil)
	t.Cleanup(func() { svr.Shutdown(time.Second) })
	time.Sleep(100 * time.Millisecond)
	return svr
}

func TestServerSingleCall(t *testing.T) {
	startServer(t, ":19801")

	conn, err := net.Dial("tcp", ":19801")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	framer := protocol.NewFramer(conn, 0)

	if err := framer.WriteMessage([]byte(`{"jsonrpc":"2.0","method":"echo","id":1}`)); err != nil {
		t.Fatal(err)
	}
	reply, err := framer.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(reply); got != `{"jsonrpc":"2.0","id":1,"result":"echo"}` {
		t.Fatalf("unexpected reply frame: %s", got)
	}
}

// A frame mixing notifications and id-bearing requests must produce a
// reply batch covering exactly the id-bearing requests, in order.
func TestServerBatchWithNotifications(t *testing.T) {
	startServer(t, ":19802")

	conn, err := net.Dial("tcp", ":19802")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	framer := protocol.NewFramer(conn, 0)

	payload := `{"jsonrpc":"2.0","method":"echo","id":1}` + "\n" +
		`{"jsonrpc":"2.0","method":"echo"}` + "\n" +
		`{"jsonrpc":"2.0","method":"echo","id":2}`
	if err := framer.WriteMessage([]byte(payload)); err != nil {
		t.Fatal(err)
	}

	reply, err := framer.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(reply), "\n")
	if len(lines) != 2 {
		t.Fatalf("expect 2 reply lines, got %d: %q", len(lines), reply)
	}
	resps, err := message.DecodeResponses(reply)
	if err != nil {
		t.Fatal(err)
	}
	if !message.IntID(1).Equal(resps[0].ID) || !message.IntID(2).Equal(resps[1].ID) {
		t.Fatalf("reply ids out of order: %v, %v", resps[0].ID, resps[1].ID)
	}
}

// An all-notification frame produces no reply frame: the next frame
// the client reads must answer the following request.
func TestServerNotificationsProduceNoFrame(t *testing.T) {
	startServer(t, ":19803")

	conn, err := net.Dial("tcp", ":19803")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	framer := protocol.NewFramer(conn, 0)

	if err := framer.WriteMessage([]byte(`{"jsonrpc":"2.0","method":"echo"}`)); err != nil {
		t.Fatal(err)
	}
	if err := framer.WriteMessage([]byte(`{"jsonrpc":"2.0","method":"echo","id":7}`)); err != nil {
		t.Fatal(err)
	}

	reply, err := framer.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if got := string(reply); got != `{"jsonrpc":"2.0","id":7,"result":"echo"}` {
		t.Fatalf("expect reply for id 7, got: %s", got)
	}
}

func TestServerMethodNotFound(t *testing.T) {
	startServer(t, ":19804")

	conn, err := net.Dial("tcp", ":19804")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	framer := protocol.NewFramer(conn, 0)

	if err := framer.WriteMessage([]byte(`{"jsonrpc":"2.0","method":"nope","id":1}`)); err != nil {
		t.Fatal(err)
	}
	reply, err := framer.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	resps, err := message.DecodeResponses(reply)
	if err != nil {
		t.Fatal(err)
	}
	if !resps[0].IsError() || resps[0].Err.Code != message.CodeMethodNotFound {
		t.Fatalf("expect method not found, got %+v", resps[0])
	}
}

// A malformed frame terminates that connection's processing; the
// listener keeps serving new connections.
func TestServerDecodeFaultClosesConnection(t *testing.T) {
	startServer(t, ":19805")

	conn, err := net.Dial("tcp", ":19805")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	framer := protocol.NewFramer(conn, 0)

	if err := framer.WriteMessage([]byte(`not json at all`)); err != nil {
		t.Fatal(err)
	}
	if _, err := framer.ReadMessage(); err == nil {
		t.Fatal("expect connection to be closed after decode fault")
	}

	// A fresh connection still works.
	conn2, err := net.Dial("tcp", ":19805")
	if err != nil {
		t.Fatal(err)
	}
	defer conn2.Close()
	framer2 := protocol.NewFramer(conn2, 0)
	if err := framer2.WriteMessage([]byte(`{"jsonrpc":"2.0","method":"echo","id":1}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := framer2.ReadMessage(); err != nil {
		t.Fatalf("fresh connection should still be served: %v", err)
	}
}

func TestServerHandlerError(t *testing.T) {
	svr := NewServer()
	svr.Handle("fail", func(_ context.Context, req *message.Request) (any, *message.ErrorObject) {
		return nil, message.NewError(message.CodeInvalidParams, "bad args")
	})
	go svr.Serve("tcp", ":19806", "", nil)
	defer svr.Shutdown(time.Second)
	time.Sleep(100 * time.Millisecond)

	conn, err := net.Dial("tcp", ":19806")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	framer := protocol.NewFramer(conn, 0)

	if err := framer.WriteMessage([]byte(`{"jsonrpc":"2.0","method":"fail","id":3}`)); err != nil {
		t.Fatal(err)
	}
	reply, err := framer.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	resps, err := message.DecodeResponses(reply)
	if err != nil {
		t.Fatal(err)
	}
	if !resps[0].IsError() || resps[0].Err.Code != message.CodeInvalidParams {
		t.Fatalf("expect invalid params error, got %+v", resps[0])
	}
}
