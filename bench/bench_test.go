package bench

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	kvclient_go "kvclient-go"
	"kvclient-go/gonet"
	"kvclient-go/kvserver"
)

func BenchmarkClient(b *testing.B) {
	// todo: make proper benchmark, integrate iterations with framework, etc.
	workers := 10
	iterations := 1000
	conns := 5

	l := gonet.NewListener(0, gonet.NewServerFactory(kvserver.NewHandler(kvserver.NewStore())))
	require.NoError(b, l.Start(context.Background()))
	defer l.Close()

	cli, err := kvclient_go.NewClient(l.Address().String(), conns, conns)
	require.NoError(b, err)
	defer cli.Close()

	wg := &sync.WaitGroup{}
	wg.Add(workers)

	for i := 1; i <= iterations; i++ {
		key := fmt.Sprintf("bench-%d", i)
		val := []byte(fmt.Sprintf("value-%d-blahblahblah", i))
		err = cli.Set(context.Background(), key, 0, val, time.Hour)
		require.NoError(b, err)
	}

	b.ResetTimer()
	clientTest := func(worker int) {
		defer wg.Done()
		for i := 1; i <= iterations; i++ {
			key := fmt.Sprintf("bench-%d", i)
			_, _, _ = cli.Get(context.Background(), key)
		}
	}

	for i := 1; i <= workers; i++ {
		go clientTest(i)
	}
	wg.Wait()
}
