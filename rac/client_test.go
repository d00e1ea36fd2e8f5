// SPDX-License-Identifier: GPL-3.0-or-later

package rac

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dataClusterList, _  = os.ReadFile("testdata/cluster-list.txt")
	dataSessionList, _  = os.ReadFile("testdata/session-list.txt")
	dataServerList, _   = os.ReadFile("testdata/server-list.txt")
	dataProcessList, _  = os.ReadFile("testdata/process-list.txt")
	dataInfobaseList, _ = os.ReadFile("testdata/infobase-summary-list.txt")
)

func Test_testDataIsValid(t *testing.T) {
	for name, data := range map[string][]byte{
		"dataClusterList":  dataClusterList,
		"dataSessionList":  dataSessionList,
		"dataServerList":   dataServerList,
		"dataProcessList":  dataProcessList,
		"dataInfobaseList": dataInfobaseList,
	} {
		require.NotEmpty(t, data, name)
	}
}

type mockRunner struct {
	mu       sync.Mutex
	out      []byte
	err      error
	lastArgs []string
	calls    int
}

func (m *mockRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastArgs = args
	m.calls++
	return m.out, m.err
}

func prepareClient(out []byte) (*Client, *mockRunner) {
	client := NewClient(Config{
		BinaryPath: "rac",
		Host:       "127.0.0.1",
		Port:       1545,
		Timeout:    time.Second,
	}, nil)

	mock := &mockRunner{out: out}
	client.SetRunner(mock)

	return client, mock
}

func TestClient_Clusters(t *testing.T) {
	client, mock := prepareClient(dataClusterList)

	clusters, err := client.Clusters(context.Background())
	require.NoError(t, err)

	// the third fixture record carries a malformed identifier
	want := []Cluster{
		{
			ID:     "6d6958e1-a96c-4999-a995-698a0298161e",
			Name:   "Main Cluster",
			Host:   "srv-1c-01",
			Port:   1541,
			Status: StatusUnknown,
		},
		{
			ID:     "91a9bc3f-4b11-4c9e-8d29-4d37fd9f6a41",
			Name:   "Reporting Cluster",
			Host:   "srv-1c-02",
			Port:   1541,
			Status: StatusUnknown,
		},
	}
	assert.Equal(t, want, clusters)
	assert.Equal(t, []string{"cluster", "list", "127.0.0.1:1545"}, mock.lastArgs)
}

func TestClient_ClustersCaching(t *testing.T) {
	client, mock := prepareClient(dataClusterList)

	first, err := client.Clusters(context.Background())
	require.NoError(t, err)

	mock.out = nil
	second, err := client.Clusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	client.InvalidateClusters()
	third, err := client.Clusters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestClient_ClustersConcurrent(t *testing.T) {
	client, mock := prepareClient(dataClusterList)

	var wg sync.WaitGroup
	results := make([][]Cluster, 8)
	errs := make([]error, 8)

	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = client.Clusters(context.Background())
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}

	// concurrent callers share one fetch
	mock.mu.Lock()
	defer mock.mu.Unlock()
	assert.Equal(t, 1, mock.calls)
}

func TestClient_ClustersCacheExpiry(t *testing.T) {
	client := NewClient(Config{
		BinaryPath: "rac",
		Host:       "127.0.0.1",
		Port:       1545,
		CacheTTL:   time.Millisecond,
	}, nil)
	mock := &mockRunner{out: dataClusterList}
	client.SetRunner(mock)

	first, err := client.Clusters(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	time.Sleep(5 * time.Millisecond)

	mock.mu.Lock()
	mock.out = []byte("cluster : 6d6958e1-a96c-4999-a995-698a0298161e\nname : Solo\n")
	mock.mu.Unlock()

	second, err := client.Clusters(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Solo", second[0].Name)
}

func TestClient_ClustersError(t *testing.T) {
	client, mock := prepareClient(nil)
	mock.err = errors.New("connection refused")

	clusters, err := client.Clusters(context.Background())
	assert.Error(t, err)
	assert.Nil(t, clusters)
}

func TestClient_Sessions(t *testing.T) {
	client, mock := prepareClient(dataSessionList)

	sessions, err := client.Sessions(context.Background(), "6d6958e1-a96c-4999-a995-698a0298161e")
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	assert.Equal(t, []string{
		"session", "list",
		"--cluster=6d6958e1-a96c-4999-a995-698a0298161e",
		"127.0.0.1:1545",
	}, mock.lastArgs)

	first := sessions[0]
	assert.Equal(t, "1fe0935e-4b7d-43b5-8d7b-b5d7ef0e6f7a", first.ID)
	assert.Equal(t, int64(12), first.Number)
	assert.Equal(t, "Ivanov", first.UserName)
	assert.Equal(t, AppThinClient, first.AppID)
	assert.Equal(t, "accounting", first.Infobase)
	assert.Equal(t, "ws-042", first.Host)
	assert.False(t, first.Hibernating)
	assert.Equal(t, int64(3), first.CallsLast5Min)
	assert.Equal(t, int64(20480), first.BytesLast5Min)
	assert.Equal(t, time.Date(2026, 8, 26, 8, 15, 3, 0, time.Local), first.StartedAt)
	assert.Equal(t, time.Date(2026, 8, 26, 10, 29, 55, 0, time.Local), first.LastActiveAt)

	job := sessions[1]
	assert.Equal(t, AppBackgroundJob, job.AppID)
	assert.True(t, job.Hibernating)

	designer := sessions[2]
	assert.Equal(t, AppDesigner, designer.AppID)
	assert.Equal(t, int64(512), designer.BytesLast5Min)
}

func TestClient_SessionsAuthArgs(t *testing.T) {
	client := NewClient(Config{
		BinaryPath:  "rac",
		Host:        "srv-1c-01",
		Port:        1545,
		ClusterUser: "admin",
		ClusterPass: "secret",
	}, nil)
	mock := &mockRunner{out: dataSessionList}
	client.SetRunner(mock)

	_, err := client.Sessions(context.Background(), "6d6958e1-a96c-4999-a995-698a0298161e")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"session", "list",
		"--cluster=6d6958e1-a96c-4999-a995-698a0298161e",
		"--cluster-user=admin",
		"--cluster-pwd=secret",
		"srv-1c-01:1545",
	}, mock.lastArgs)
}

func TestClient_WorkingServers(t *testing.T) {
	client, _ := prepareClient(dataServerList)

	servers, err := client.WorkingServers(context.Background(), "6d6958e1-a96c-4999-a995-698a0298161e")
	require.NoError(t, err)
	require.Len(t, servers, 2)

	assert.Equal(t, WorkingServer{
		Name:             "Central server",
		Host:             "srv-1c-01",
		Port:             1541,
		ConnectionsLimit: 128,
		MemoryLimitKB:    8388608,
	}, servers[0])

	assert.Zero(t, servers[1].MemoryLimitKB)
}

func TestClient_Processes(t *testing.T) {
	client, _ := prepareClient(dataProcessList)

	procs, err := client.Processes(context.Background(), "6d6958e1-a96c-4999-a995-698a0298161e")
	require.NoError(t, err)
	require.Len(t, procs, 3)

	first := procs[0]
	assert.Equal(t, "2f6b1f57-9a64-4a8f-9b90-e20c1cf0b6f4", first.ID)
	assert.Equal(t, int64(4312), first.PID)
	assert.Equal(t, "srv-1c-01", first.Host)
	assert.True(t, first.Running)
	assert.Equal(t, int64(37), first.Connections)
	// memory-size is reported in bytes
	assert.Equal(t, int64(2147483648/1024), first.MemoryKB)

	stopped := procs[2]
	assert.False(t, stopped.Running)
	assert.True(t, stopped.StartedAt.IsZero())
}

func TestClient_Infobases(t *testing.T) {
	client, _ := prepareClient(dataInfobaseList)

	bases, err := client.Infobases(context.Background(), "6d6958e1-a96c-4999-a995-698a0298161e")
	require.NoError(t, err)
	require.Len(t, bases, 2)

	assert.Equal(t, Infobase{
		ID:             "0a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d",
		Name:           "accounting",
		Descr:          "Accounting department",
		MaxConnections: 200,
	}, bases[0])

	assert.Zero(t, bases[1].MaxConnections)
}

func TestClient_ListError(t *testing.T) {
	client, mock := prepareClient(nil)
	mock.err = errors.New("timed out")

	_, err := client.Sessions(context.Background(), "6d6958e1-a96c-4999-a995-698a0298161e")
	assert.Error(t, err)

	_, err = client.Processes(context.Background(), "6d6958e1-a96c-4999-a995-698a0298161e")
	assert.Error(t, err)
}
