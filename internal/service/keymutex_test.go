package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	locks := keyMutex{}
	counter := 0

	workers := 50
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			unlock := locks.Lock("cart-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyMutexIndependentKeysDoNotBlock(t *testing.T) {
	locks := keyMutex{}

	unlockA := locks.Lock("cart-a")
	defer unlockA()

	// Another key is acquirable while cart-a is held.
	unlockB := locks.Lock("cart-b")
	unlockB()
}

func TestLockBothSameKey(t *testing.T) {
	locks := keyMutex{}

	unlock := locks.LockBoth("cart-1", "cart-1")
	unlock()

	unlock = locks.Lock("cart-1")
	unlock()
}

func TestLockBothOppositeOrder(t *testing.T) {
	locks := keyMutex{}

	rounds := 100
	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range rounds {
			unlock := locks.LockBoth("cart-a", "cart-b")
			unlock()
		}
	}()
	go func() {
		defer wg.Done()
		for range rounds {
			unlock := locks.LockBoth("cart-b", "cart-a")
			unlock()
		}
	}()
	wg.Wait()
}
