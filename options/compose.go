package options

// ComposeDBOptions builds the engine-level options of an instance: the
// profile baseline, passed through factory when one is set, with
// CreateIfMissing forced on. The factory cannot turn CreateIfMissing off.
func ComposeDBOptions(profile PredefinedOptions, factory OptionsFactory) DBOptions {
	opt := profile.DBOptions()
	if factory != nil {
		opt = factory.CreateDBOptions(opt)
	}
	return opt.WithCreateIfMissing(true)
}

// ComposeColumnOptions builds the column-family options of an instance. No
// defaults are forced beyond what the profile and factory produce.
func ComposeColumnOptions(profile PredefinedOptions, factory OptionsFactory) ColumnFamilyOptions {
	opt := profile.ColumnOptions()
	if factory != nil {
		opt = factory.CreateColumnOptions(opt)
	}
	return opt
}
