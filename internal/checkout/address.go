package checkout

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"storefront/internal/api"
	"storefront/internal/model"
)

const pathAddresses = "/auth/addresses/"

// AddressBook holds the buyer's delivery addresses and the current selection.
type AddressBook struct {
	client *api.Client

	mu        sync.RWMutex
	addresses []model.Address
	selected  int64 // 0 = none
}

// NewAddressBook creates an empty address book.
func NewAddressBook(client *api.Client) *AddressBook {
	return &AddressBook{client: client}
}

// Load fetches the addresses and selects the default one, else the first.
func (b *AddressBook) Load(ctx context.Context) ([]model.Address, error) {
	resp, err := b.client.Send(ctx, &api.Request{Method: http.MethodGet, Path: pathAddresses})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("loading addresses: %w", err)
	}

	addrs, err := model.DecodeList[model.Address](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing addresses: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses = addrs
	b.selected = initialSelection(addrs)
	return b.copyLocked(), nil
}

// Add creates an address. The new address goes to the front and is selected.
func (b *AddressBook) Add(ctx context.Context, addr model.Address) (*model.Address, error) {
	var created model.Address
	err := b.client.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   pathAddresses,
		Body:   addr,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("adding address: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses = append([]model.Address{created}, b.addresses...)
	b.selected = created.ID
	return &created, nil
}

// Select makes id the delivery address.
func (b *AddressBook) Select(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.addresses {
		if a.ID == id {
			b.selected = id
			return nil
		}
	}
	return model.NewNotFoundError("address")
}

// Selected returns a copy of the selected address, or nil.
func (b *AddressBook) Selected() *model.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.addresses {
		if a.ID == b.selected && b.selected != 0 {
			addr := a
			return &addr
		}
	}
	return nil
}

// Addresses returns the loaded addresses, newest additions first.
func (b *AddressBook) Addresses() []model.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.copyLocked()
}

// Reset forgets addresses and selection. Called on logout.
func (b *AddressBook) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses = nil
	b.selected = 0
}

func (b *AddressBook) copyLocked() []model.Address {
	return append([]model.Address{}, b.addresses...)
}

func initialSelection(addrs []model.Address) int64 {
	for _, a := range addrs {
		if a.IsDefault {
			return a.ID
		}
	}
	if len(addrs) > 0 {
		return addrs[0].ID
	}
	return 0
}
