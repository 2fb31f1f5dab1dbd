package maps

// Factory validates layer descriptors and instantiates live tiled layers
// bound to their WMS endpoint. All layers created by one factory share a
// geo fetcher and a tile error log.
type Factory struct {
	fetcher GeoFetcher
	errs    *TileErrorLog
}

// NewFactory creates a layer factory.
func NewFactory(fetcher GeoFetcher, errs *TileErrorLog) *Factory {
	if errs == nil {
		errs = NewTileErrorLog(0)
	}
	return &Factory{fetcher: fetcher, errs: errs}
}

// Errors exposes the shared tile error log for diagnostics.
func (f *Factory) Errors() *TileErrorLog { return f.errs }

// Create builds a live layer for the descriptor. Validation failures return
// an error and no partial layer; that single layer is skipped, others
// proceed.
func (f *Factory) Create(d LayerDescriptor) (*LiveLayer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	src := &TileSource{
		layerID:     d.ID,
		remoteName:  d.RemoteName,
		baseURL:     d.URL,
		format:      d.EffectiveFormat(),
		transparent: d.Transparent,
		fetcher:     f.fetcher,
		errs:        f.errs,
	}

	return &LiveLayer{
		Descriptor: d,
		Visible:    d.DefaultVisible,
		Opacity:    d.EffectiveOpacity(),
		Tiles:      src,
	}, nil
}
