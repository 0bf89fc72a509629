package types

// sopClassByFriendlyName maps the exported Go identifier for each SOP
// class constant above to its UID value, so configuration surfaces can
// accept either form (original spec §6: abstract_syntaxes "accepts
// friendly names (e.g. CTImageStorage) or raw UIDs").
var sopClassByFriendlyName = map[string]string{
	"BreastProjectionXRayImageStorageForPresentation": BreastProjectionXRayImageStorageForPresentation,
	"BreastProjectionXRayImageStorageForProcessing": BreastProjectionXRayImageStorageForProcessing,
	"BreastTomosynthesisImageStorage": BreastTomosynthesisImageStorage,
	"CTImageStorage": CTImageStorage,
	"ColorPaletteInformationModelFind": ColorPaletteInformationModelFind,
	"ColorPaletteInformationModelGet": ColorPaletteInformationModelGet,
	"ColorPaletteInformationModelMove": ColorPaletteInformationModelMove,
	"ColorPaletteStorage": ColorPaletteStorage,
	"CompositeInstanceRetrieveWithoutBulkDataGet": CompositeInstanceRetrieveWithoutBulkDataGet,
	"CompositeInstanceRootRetrieveGet": CompositeInstanceRootRetrieveGet,
	"CompositeInstanceRootRetrieveMove": CompositeInstanceRootRetrieveMove,
	"ComputedRadiographyImageStorage": ComputedRadiographyImageStorage,
	"DefinedProcedureProtocolInformationModelFind": DefinedProcedureProtocolInformationModelFind,
	"DefinedProcedureProtocolInformationModelGet": DefinedProcedureProtocolInformationModelGet,
	"DefinedProcedureProtocolInformationModelMove": DefinedProcedureProtocolInformationModelMove,
	"DigitalIntraOralXRayImageStorageForPresentation": DigitalIntraOralXRayImageStorageForPresentation,
	"DigitalIntraOralXRayImageStorageForProcessing": DigitalIntraOralXRayImageStorageForProcessing,
	"DigitalMammographyXRayImageStorageForPresentation": DigitalMammographyXRayImageStorageForPresentation,
	"DigitalMammographyXRayImageStorageForProcessing": DigitalMammographyXRayImageStorageForProcessing,
	"DigitalXRayImageStorageForPresentation": DigitalXRayImageStorageForPresentation,
	"DigitalXRayImageStorageForProcessing": DigitalXRayImageStorageForProcessing,
	"EncapsulatedCDAStorage": EncapsulatedCDAStorage,
	"EncapsulatedMTLStorage": EncapsulatedMTLStorage,
	"EncapsulatedOBJStorage": EncapsulatedOBJStorage,
	"EncapsulatedPDFStorage": EncapsulatedPDFStorage,
	"EncapsulatedSTLStorage": EncapsulatedSTLStorage,
	"EnhancedCTImageStorage": EnhancedCTImageStorage,
	"EnhancedMRColorImageStorage": EnhancedMRColorImageStorage,
	"EnhancedMRImageStorage": EnhancedMRImageStorage,
	"EnhancedPETImageStorage": EnhancedPETImageStorage,
	"EnhancedUSVolumeStorage": EnhancedUSVolumeStorage,
	"EnhancedXAImageStorage": EnhancedXAImageStorage,
	"EnhancedXRFImageStorage": EnhancedXRFImageStorage,
	"GeneralPurposePerformedProcedureStepSOPClass": GeneralPurposePerformedProcedureStepSOPClass,
	"GeneralPurposeScheduledProcedureStepSOPClass": GeneralPurposeScheduledProcedureStepSOPClass,
	"GeneralPurposeWorklistInformationModelFind": GeneralPurposeWorklistInformationModelFind,
	"GenericImplantTemplateInformationModelFind": GenericImplantTemplateInformationModelFind,
	"GenericImplantTemplateInformationModelGet": GenericImplantTemplateInformationModelGet,
	"GenericImplantTemplateInformationModelMove": GenericImplantTemplateInformationModelMove,
	"GenericImplantTemplateStorage": GenericImplantTemplateStorage,
	"HangingProtocolInformationModelFind": HangingProtocolInformationModelFind,
	"HangingProtocolInformationModelGet": HangingProtocolInformationModelGet,
	"HangingProtocolInformationModelMove": HangingProtocolInformationModelMove,
	"HangingProtocolStorage": HangingProtocolStorage,
	"ImplantAssemblyTemplateInformationModelFind": ImplantAssemblyTemplateInformationModelFind,
	"ImplantAssemblyTemplateInformationModelGet": ImplantAssemblyTemplateInformationModelGet,
	"ImplantAssemblyTemplateInformationModelMove": ImplantAssemblyTemplateInformationModelMove,
	"ImplantAssemblyTemplateStorage": ImplantAssemblyTemplateStorage,
	"ImplantTemplateGroupInformationModelFind": ImplantTemplateGroupInformationModelFind,
	"ImplantTemplateGroupInformationModelGet": ImplantTemplateGroupInformationModelGet,
	"ImplantTemplateGroupInformationModelMove": ImplantTemplateGroupInformationModelMove,
	"ImplantTemplateGroupStorage": ImplantTemplateGroupStorage,
	"IntravascularOpticalCoherenceTomographyImageStorageForPresentation": IntravascularOpticalCoherenceTomographyImageStorageForPresentation,
	"IntravascularOpticalCoherenceTomographyImageStorageForProcessing": IntravascularOpticalCoherenceTomographyImageStorageForProcessing,
	"LegacyConvertedEnhancedCTImageStorage": LegacyConvertedEnhancedCTImageStorage,
	"LegacyConvertedEnhancedMRImageStorage": LegacyConvertedEnhancedMRImageStorage,
	"LegacyConvertedEnhancedPETImageStorage": LegacyConvertedEnhancedPETImageStorage,
	"MRImageStorage": MRImageStorage,
	"MRSpectroscopyStorage": MRSpectroscopyStorage,
	"ModalityPerformedProcedureStepNotificationSOPClass": ModalityPerformedProcedureStepNotificationSOPClass,
	"ModalityPerformedProcedureStepRetrieveSOPClass": ModalityPerformedProcedureStepRetrieveSOPClass,
	"ModalityPerformedProcedureStepSOPClass": ModalityPerformedProcedureStepSOPClass,
	"ModalityWorklistInformationModelFind": ModalityWorklistInformationModelFind,
	"MultiFrameGrayscaleByteSecondaryCaptureImageStorage": MultiFrameGrayscaleByteSecondaryCaptureImageStorage,
	"MultiFrameGrayscaleWordSecondaryCaptureImageStorage": MultiFrameGrayscaleWordSecondaryCaptureImageStorage,
	"MultiFrameSingleBitSecondaryCaptureImageStorage": MultiFrameSingleBitSecondaryCaptureImageStorage,
	"MultiFrameTrueColorSecondaryCaptureImageStorage": MultiFrameTrueColorSecondaryCaptureImageStorage,
	"NuclearMedicineImageStorage": NuclearMedicineImageStorage,
	"OphthalmicOpticalCoherenceTomographyBscanVolumeAnalysisStorage": OphthalmicOpticalCoherenceTomographyBscanVolumeAnalysisStorage,
	"OphthalmicOpticalCoherenceTomographyEnFaceImageStorage": OphthalmicOpticalCoherenceTomographyEnFaceImageStorage,
	"OphthalmicPhotography16BitImageStorage": OphthalmicPhotography16BitImageStorage,
	"OphthalmicPhotography8BitImageStorage": OphthalmicPhotography8BitImageStorage,
	"OphthalmicTomographyImageStorage": OphthalmicTomographyImageStorage,
	"PETImageStorage": PETImageStorage,
	"PatientRootQueryRetrieveInformationModelFind": PatientRootQueryRetrieveInformationModelFind,
	"PatientRootQueryRetrieveInformationModelGet": PatientRootQueryRetrieveInformationModelGet,
	"PatientRootQueryRetrieveInformationModelMove": PatientRootQueryRetrieveInformationModelMove,
	"PatientStudyOnlyQueryRetrieveInformationModelFind": PatientStudyOnlyQueryRetrieveInformationModelFind,
	"PatientStudyOnlyQueryRetrieveInformationModelGet": PatientStudyOnlyQueryRetrieveInformationModelGet,
	"PatientStudyOnlyQueryRetrieveInformationModelMove": PatientStudyOnlyQueryRetrieveInformationModelMove,
	"RTBeamsTreatmentRecordStorage": RTBeamsTreatmentRecordStorage,
	"RTBrachyTreatmentRecordStorage": RTBrachyTreatmentRecordStorage,
	"RTDoseStorage": RTDoseStorage,
	"RTImageStorage": RTImageStorage,
	"RTIonBeamsTreatmentRecordStorage": RTIonBeamsTreatmentRecordStorage,
	"RTIonPlanStorage": RTIonPlanStorage,
	"RTPlanStorage": RTPlanStorage,
	"RTStructureSetStorage": RTStructureSetStorage,
	"RTTreatmentSummaryRecordStorage": RTTreatmentSummaryRecordStorage,
	"SecondaryCaptureImageStorage": SecondaryCaptureImageStorage,
	"StorageCommitmentPullModelSOPClass": StorageCommitmentPullModelSOPClass,
	"StorageCommitmentPushModelSOPClass": StorageCommitmentPushModelSOPClass,
	"StudyRootQueryRetrieveInformationModelFind": StudyRootQueryRetrieveInformationModelFind,
	"StudyRootQueryRetrieveInformationModelGet": StudyRootQueryRetrieveInformationModelGet,
	"StudyRootQueryRetrieveInformationModelMove": StudyRootQueryRetrieveInformationModelMove,
	"UltrasoundImageStorage": UltrasoundImageStorage,
	"UltrasoundMultiFrameImageStorage": UltrasoundMultiFrameImageStorage,
	"UnifiedProcedureStepEventSOPClass": UnifiedProcedureStepEventSOPClass,
	"UnifiedProcedureStepPullSOPClass": UnifiedProcedureStepPullSOPClass,
	"UnifiedProcedureStepPushSOPClass": UnifiedProcedureStepPushSOPClass,
	"UnifiedProcedureStepQuerySOPClass": UnifiedProcedureStepQuerySOPClass,
	"UnifiedProcedureStepWatchSOPClass": UnifiedProcedureStepWatchSOPClass,
	"VLEndoscopicImageStorage": VLEndoscopicImageStorage,
	"VLMicroscopicImageStorage": VLMicroscopicImageStorage,
	"VLPhotographicImageStorage": VLPhotographicImageStorage,
	"VLSlideCoordinatesMicroscopicImageStorage": VLSlideCoordinatesMicroscopicImageStorage,
	"VLWholeSlideMicroscopyImageStorage": VLWholeSlideMicroscopyImageStorage,
	"VerificationSOPClass": VerificationSOPClass,
	"WideFieldOphthalmicPhotography3DCoordinatesImageStorage": WideFieldOphthalmicPhotography3DCoordinatesImageStorage,
	"WideFieldOphthalmicPhotographyStereographicProjectionImageStorage": WideFieldOphthalmicPhotographyStereographicProjectionImageStorage,
	"XRay3DAngiographicImageStorage": XRay3DAngiographicImageStorage,
	"XRay3DCraniofacialImageStorage": XRay3DCraniofacialImageStorage,
	"XRayAngiographicImageStorage": XRayAngiographicImageStorage,
	"XRayRadiofluoroscopicImageStorage": XRayRadiofluoroscopicImageStorage,
}

// ResolveSOPClassName returns the UID for a friendly SOP class
// identifier (e.g. "CTImageStorage"). If name is not a recognized
// identifier, it is assumed to already be a raw UID and is returned
// unchanged — config.Validate does not otherwise check SOP class UIDs
// against a dictionary.
func ResolveSOPClassName(name string) string {
	if uid, ok := sopClassByFriendlyName[name]; ok {
		return uid
	}
	return name
}
